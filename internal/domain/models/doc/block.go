package doc

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// BlockType is the closed vocabulary of node kinds in a document tree.
// The type determines which optional fields on a Block are meaningful.
type BlockType string

const (
	BlockText         BlockType = "text"
	BlockInput        BlockType = "input"
	BlockLongText     BlockType = "long-text"
	BlockNumber       BlockType = "number"
	BlockEmail        BlockType = "email"
	BlockSelect       BlockType = "select"
	BlockRadio        BlockType = "radio"
	BlockCheckbox     BlockType = "checkbox"
	BlockDate         BlockType = "date"
	BlockSignature    BlockType = "signature"
	BlockImage        BlockType = "image"
	BlockVideo        BlockType = "video"
	BlockFileUpload   BlockType = "file-upload"
	BlockSectionBreak BlockType = "section-break"
	BlockSpacer       BlockType = "spacer"
	BlockAlert        BlockType = "alert"
	BlockQuote        BlockType = "quote"
	BlockHTML         BlockType = "html"
	BlockFormula      BlockType = "formula"
	BlockCurrency     BlockType = "currency"
	BlockPayment      BlockType = "payment"
	BlockColumns      BlockType = "columns"
	BlockColumn       BlockType = "column"
	BlockConditional  BlockType = "conditional"
	BlockRepeater     BlockType = "repeater"
)

// AllBlockTypes lists every valid block type, in a stable order.
var AllBlockTypes = []BlockType{
	BlockText, BlockInput, BlockLongText, BlockNumber, BlockEmail,
	BlockSelect, BlockRadio, BlockCheckbox, BlockDate, BlockSignature,
	BlockImage, BlockVideo, BlockFileUpload, BlockSectionBreak, BlockSpacer,
	BlockAlert, BlockQuote, BlockHTML, BlockFormula, BlockCurrency,
	BlockPayment, BlockColumns, BlockColumn, BlockConditional, BlockRepeater,
}

// IsValidBlockType reports whether t is part of the block vocabulary.
func IsValidBlockType(t BlockType) bool {
	for _, v := range AllBlockTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ConditionOperator names a comparison applied by conditional blocks.
type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpNotEquals   ConditionOperator = "not_equals"
	OpContains    ConditionOperator = "contains"
	OpNotContains ConditionOperator = "not_contains"
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
	OpIsSet       ConditionOperator = "is_set"
	OpIsEmpty     ConditionOperator = "is_empty"
	OpBefore      ConditionOperator = "before"
	OpAfter       ConditionOperator = "after"
)

// Condition describes the visibility rule carried by a conditional block.
// VariableName references the variableName of the answer block that drives
// the branch choice.
type Condition struct {
	VariableName string            `json:"variableName"`
	Operator     ConditionOperator `json:"operator"`
	Value        string            `json:"value"`
}

// Validate checks the condition descriptor.
// An empty variable name is allowed (freshly created conditionals start blank).
func (c Condition) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Operator, validation.Required, validation.In(
			OpEquals, OpNotEquals, OpContains, OpNotContains,
			OpGreaterThan, OpLessThan, OpIsSet, OpIsEmpty, OpBefore, OpAfter,
		)),
	)
}

// CurrencySettings configures display of currency blocks.
type CurrencySettings struct {
	Code          string `json:"code"`
	Symbol        string `json:"symbol"`
	DecimalPlaces int    `json:"decimalPlaces"`
}

// PaymentSettings configures payment blocks. AmountType selects between a
// fixed amount and a formula resolved through the formula engine.
type PaymentSettings struct {
	AmountType    string  `json:"amountType"` // "fixed" or "formula"
	Amount        float64 `json:"amount,omitempty"`
	AmountFormula string  `json:"amountFormula,omitempty"`
	Currency      string  `json:"currency"`
	Description   string  `json:"description,omitempty"`
}

// Block is a node of the document tree. One struct covers all block kinds;
// optional fields are only meaningful for their corresponding type, and
// omitempty keeps absent fields out of serialized snapshots (which matters
// for content hashing).
//
// Children holds nested content: the "true" branch for conditionals, the
// column list for columns blocks, the per-row schema for repeaters, or plain
// nested content. ElseChildren is the "false" branch and is only populated
// on conditional blocks.
type Block struct {
	ID                string            `json:"id"`
	Type              BlockType         `json:"type"`
	Content           string            `json:"content,omitempty"`
	Label             string            `json:"label,omitempty"`
	Placeholder       string            `json:"placeholder,omitempty"`
	VariableName      string            `json:"variableName,omitempty"`
	Options           []string          `json:"options,omitempty"`
	Required          bool              `json:"required,omitempty"`
	Min               *float64          `json:"min,omitempty"`
	Max               *float64          `json:"max,omitempty"`
	Step              *float64          `json:"step,omitempty"`
	MinLength         *int              `json:"minLength,omitempty"`
	AssignedToPartyID string            `json:"assignedToPartyId,omitempty"`
	Condition         *Condition        `json:"condition,omitempty"`
	Formula           string            `json:"formula,omitempty"`
	CurrencySettings  *CurrencySettings `json:"currencySettings,omitempty"`
	PaymentSettings   *PaymentSettings  `json:"paymentSettings,omitempty"`
	VideoURL          string            `json:"videoUrl,omitempty"`
	SignatureID       string            `json:"signatureId,omitempty"`
	SignedAt          string            `json:"signedAt,omitempty"`
	Height            *int              `json:"height,omitempty"`
	Width             *float64          `json:"width,omitempty"`
	Variant           string            `json:"variant,omitempty"`
	Children          []*Block          `json:"children,omitempty"`
	ElseChildren      []*Block          `json:"elseChildren,omitempty"`
}

// Validate checks structural rules for a single block (not its subtree):
// the type must be known, and condition/elseChildren belong to conditional
// blocks only.
func (b *Block) Validate() error {
	if err := validation.ValidateStruct(b,
		validation.Field(&b.ID, validation.Required),
		validation.Field(&b.Type, validation.Required, validation.By(func(v interface{}) error {
			if !IsValidBlockType(v.(BlockType)) {
				return validation.NewError("validation_block_type", "unknown block type")
			}
			return nil
		})),
	); err != nil {
		return err
	}

	if b.Type != BlockConditional {
		if b.Condition != nil {
			return validation.NewError("validation_condition", "condition is only valid on conditional blocks")
		}
		if len(b.ElseChildren) > 0 {
			return validation.NewError("validation_else_children", "elseChildren is only valid on conditional blocks")
		}
	} else if b.Condition != nil {
		if err := b.Condition.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// IsContainer reports whether the block kind nests other blocks through
// Children in normal rendering.
func (b *Block) IsContainer() bool {
	switch b.Type {
	case BlockColumns, BlockColumn, BlockConditional, BlockRepeater:
		return true
	default:
		return false
	}
}
