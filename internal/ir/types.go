package ir

import (
	"slices"
	"strconv"
	"strings"
)

// OpKind tags an Operation variant.
type OpKind string

const (
	OpCreate  OpKind = "create"
	OpAdd     OpKind = "add"
	OpDelete  OpKind = "delete"
	OpHistory OpKind = "history"
)

// ValidOpKinds lists every operation tag in wire order.
var ValidOpKinds = []OpKind{OpCreate, OpAdd, OpDelete, OpHistory}

// ParseOpKind returns the OpKind for a wire tag.
func ParseOpKind(s string) (OpKind, bool) {
	k := OpKind(s)
	if slices.Contains(ValidOpKinds, k) {
		return k, true
	}
	return "", false
}

// IsWrite reports whether operations of this kind mutate state.
func (k OpKind) IsWrite() bool {
	return k == OpCreate || k == OpAdd || k == OpDelete
}

// Operation is one vehicle-maintenance request. Which fields are meaningful
// depends on Kind:
//
//	create:       VIN, IdentityProof, WorkDate, Brand, Model, Description
//	add, delete:  VIN, IdentityProof, WorkDate, WorkCodes, Odometer, Description
//	history:      VIN
//
// Operations are never stored; only the LedgerEntry they produce is.
type Operation struct {
	Kind          OpKind  `json:"op"`
	VIN           string  `json:"vin"`
	IdentityProof string  `json:"identity_proof,omitempty"`
	WorkDate      string  `json:"work_date,omitempty"`
	WorkCodes     []int64 `json:"work_codes,omitempty"`
	Odometer      int64   `json:"odometer,omitempty"`
	Description   string  `json:"description,omitempty"`
	Brand         string  `json:"brand,omitempty"`
	Model         string  `json:"model,omitempty"`
}

// NewCreate builds a create operation.
func NewCreate(vin, proof, workDate, brand, model, description string) Operation {
	return Operation{
		Kind:          OpCreate,
		VIN:           vin,
		IdentityProof: proof,
		WorkDate:      workDate,
		Brand:         brand,
		Model:         model,
		Description:   description,
	}
}

// NewAdd builds an add operation.
func NewAdd(vin, proof, workDate string, codes []int64, odometer int64, description string) Operation {
	return Operation{
		Kind:          OpAdd,
		VIN:           vin,
		IdentityProof: proof,
		WorkDate:      workDate,
		WorkCodes:     codes,
		Odometer:      odometer,
		Description:   description,
	}
}

// NewDelete builds a delete operation. codes are given as the user wrote
// them; Delta negates them.
func NewDelete(vin, proof, workDate string, codes []int64, odometer int64, description string) Operation {
	op := NewAdd(vin, proof, workDate, codes, odometer, description)
	op.Kind = OpDelete
	return op
}

// NewHistory builds a read-only history operation.
func NewHistory(vin string) Operation {
	return Operation{Kind: OpHistory, VIN: vin}
}

// Delta returns the signed work delta this operation contributes.
// Deletion is modelled as compensating negative entries: each code of a
// delete operation is negated. Create contributes nothing.
func (op Operation) Delta() []int64 {
	switch op.Kind {
	case OpAdd:
		return slices.Clone(op.WorkCodes)
	case OpDelete:
		out := make([]int64, len(op.WorkCodes))
		for i, c := range op.WorkCodes {
			out[i] = -c
		}
		return out
	default:
		return nil
	}
}

// LedgerEntry is the value stored at an entry address. Every accepted write
// replaces it wholesale.
type LedgerEntry struct {
	VIN         string  `json:"vin"`
	Identity    string  `json:"identity"`
	WorkDate    string  `json:"work_date"`
	Work        []int64 `json:"work"`
	Mileage     int64   `json:"mileage"`
	Description string  `json:"description"`
	Brand       string  `json:"brand"`
	Model       string  `json:"model"`
	Timestamp   int64   `json:"timestamp"`
}

// ToObject converts the entry into a canonical Object.
func (e LedgerEntry) ToObject() Object {
	return Object{
		"vin":         Str(e.VIN),
		"identity":    Str(e.Identity),
		"work_date":   Str(e.WorkDate),
		"work":        IntList(e.Work),
		"mileage":     Int(e.Mileage),
		"description": Str(e.Description),
		"brand":       Str(e.Brand),
		"model":       Str(e.Model),
		"timestamp":   Int(e.Timestamp),
	}
}

// WorkString renders Work in the "x|y|z" notation; an empty delta is "0".
func (e LedgerEntry) WorkString() string {
	return FormatWorkCodes(e.Work)
}

// FormatWorkCodes renders codes joined by "|"; an empty list is "0".
func FormatWorkCodes(codes []int64) string {
	if len(codes) == 0 {
		return "0"
	}
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.FormatInt(c, 10)
	}
	return strings.Join(parts, "|")
}
