// Package profile holds the physical limits of fiscal printer models and applies them to
// outgoing documents.
package profile

import (
	"fmt"
	"sort"
	"strings"

	"fiscalbridge/internal/domain/models"
)

// DefaultModel is used when a requested model is unknown.
const DefaultModel = "thermal"

// CustomModel is the model name whose limits come from configuration.
const CustomModel = "custom"

// Ellipsis marks truncated text.
const Ellipsis = "..."

// Profile is the capability set of one printer model.
type Profile struct {
	Model              string `json:"model" yaml:"model"`
	MaxLineWidth       int    `json:"maxLineWidth" yaml:"maxLineWidth"`
	MaxHeaderLines     int    `json:"maxHeaderLines" yaml:"maxHeaderLines"`
	MaxFooterLines     int    `json:"maxFooterLines" yaml:"maxFooterLines"`
	MaxItemNameLength  int    `json:"maxItemNameLength" yaml:"maxItemNameLength"`
	MaxItemsPerReceipt int    `json:"maxItemsPerReceipt" yaml:"maxItemsPerReceipt"`
	SupportsEReceipt   bool   `json:"supportsEReceipt" yaml:"supportsEReceipt"`
	SupportsInvoice    bool   `json:"supportsInvoice" yaml:"supportsInvoice"`
	SupportsBarcode    bool   `json:"supportsBarcode" yaml:"supportsBarcode"`
	ProtocolVersion    string `json:"protocolVersion" yaml:"protocolVersion"`
}

var builtin = map[string]Profile{
	"thermal": {Model: "thermal", MaxLineWidth: 40, MaxHeaderLines: 10, MaxFooterLines: 10, MaxItemNameLength: 40,
		MaxItemsPerReceipt: 255, SupportsInvoice: true, SupportsBarcode: true, ProtocolVersion: "1.0"},
	"bingo": {Model: "bingo", MaxLineWidth: 32, MaxHeaderLines: 6, MaxFooterLines: 3, MaxItemNameLength: 32,
		MaxItemsPerReceipt: 100, ProtocolVersion: "1.0"},
	"ergo": {Model: "ergo", MaxLineWidth: 40, MaxHeaderLines: 8, MaxFooterLines: 5, MaxItemNameLength: 40,
		MaxItemsPerReceipt: 150, SupportsInvoice: true, SupportsBarcode: true, ProtocolVersion: "1.0"},
	"revo": {Model: "revo", MaxLineWidth: 48, MaxHeaderLines: 10, MaxFooterLines: 10, MaxItemNameLength: 56,
		MaxItemsPerReceipt: 500, SupportsEReceipt: true, SupportsInvoice: true, SupportsBarcode: true, ProtocolVersion: "2.0"},
	"temo": {Model: "temo", MaxLineWidth: 56, MaxHeaderLines: 10, MaxFooterLines: 10, MaxItemNameLength: 56,
		MaxItemsPerReceipt: 500, SupportsEReceipt: true, SupportsInvoice: true, SupportsBarcode: true, ProtocolVersion: "2.0"},
	"neo": {Model: "neo", MaxLineWidth: 32, MaxHeaderLines: 6, MaxFooterLines: 5, MaxItemNameLength: 40,
		MaxItemsPerReceipt: 200, SupportsEReceipt: true, SupportsBarcode: true, ProtocolVersion: "2.0"},
	// Vendor-wide defaults for printers that are not configured by model.
	"elzab": {Model: "elzab", MaxLineWidth: 40, MaxHeaderLines: 6, MaxFooterLines: 5, MaxItemNameLength: 40,
		MaxItemsPerReceipt: 250, SupportsInvoice: true, ProtocolVersion: "1.0"},
	"novitus": {Model: "novitus", MaxLineWidth: 40, MaxHeaderLines: 10, MaxFooterLines: 10, MaxItemNameLength: 40,
		MaxItemsPerReceipt: 300, SupportsEReceipt: true, SupportsInvoice: true, SupportsBarcode: true, ProtocolVersion: "1.0"},
}

// Builtin returns the fixed profile for model and whether it exists.
func Builtin(model string) (Profile, bool) {
	p, ok := builtin[strings.ToLower(strings.TrimSpace(model))]
	return p, ok
}

// Registry resolves model names to profiles. It is read-only after construction.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry returns the built-in profiles plus extra ones, typically the custom profile
// produced by a Builder.
func NewRegistry(extra ...Profile) *Registry {
	r := &Registry{profiles: make(map[string]Profile, len(builtin)+len(extra))}
	for k, p := range builtin {
		r.profiles[k] = p
	}
	for _, p := range extra {
		r.profiles[strings.ToLower(p.Model)] = p
	}
	return r
}

// Get returns the profile for model, or the default model's profile when it is unknown.
func (r *Registry) Get(model string) Profile {
	if p, ok := r.profiles[strings.ToLower(strings.TrimSpace(model))]; ok {
		return p
	}
	return r.profiles[DefaultModel]
}

// Has reports whether model is registered.
func (r *Registry) Has(model string) bool {
	_, ok := r.profiles[strings.ToLower(strings.TrimSpace(model))]
	return ok
}

// Models lists registered model names.
func (r *Registry) Models() []string {
	out := make([]string, 0, len(r.profiles))
	for k := range r.profiles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Kind selects which limit Truncate applies.
type Kind int

const (
	ItemName Kind = iota
	Line
)

// Limit returns the character limit for kind.
func (p Profile) Limit(kind Kind) int {
	if kind == ItemName {
		return p.MaxItemNameLength
	}
	return p.MaxLineWidth
}

// Truncate shortens text to the profile limit for kind.
func (p Profile) Truncate(text string, kind Kind) string {
	return Truncate(text, p.Limit(kind))
}

// Truncate shortens text to at most limit characters. Truncated text ends in Ellipsis and
// is cut at the last space when that space lies beyond 60% of the limit. A non-positive
// limit disables truncation.
func Truncate(text string, limit int) string {
	r := []rune(text)
	if limit <= 0 || len(r) <= limit {
		return text
	}
	marker := []rune(Ellipsis)
	if limit <= len(marker) {
		return string(r[:limit])
	}
	cut := r[:limit-len(marker)]
	for i := len(cut) - 1; i >= 0; i-- {
		if cut[i] == ' ' {
			if float64(i) > 0.6*float64(limit) {
				cut = cut[:i]
			}
			break
		}
	}
	return strings.TrimRight(string(cut), " ") + Ellipsis
}

// Validate returns non-fatal warnings for content that exceeds the profile. Nothing is
// modified; the driver truncates when it encodes.
func (p Profile) Validate(items []models.LineItem, header, footer []string) []string {
	var warnings []string
	if p.MaxItemsPerReceipt > 0 && len(items) > p.MaxItemsPerReceipt {
		warnings = append(warnings, fmt.Sprintf("model %s: too many items (%d/%d)",
			p.Model, len(items), p.MaxItemsPerReceipt))
	}
	for i, it := range items {
		if n := len([]rune(it.Name)); p.MaxItemNameLength > 0 && n > p.MaxItemNameLength {
			warnings = append(warnings, fmt.Sprintf("model %s: item %d name too long (%d/%d), will be truncated",
				p.Model, i+1, n, p.MaxItemNameLength))
		}
	}
	warnings = append(warnings, p.checkLines("header", header, p.MaxHeaderLines)...)
	warnings = append(warnings, p.checkLines("footer", footer, p.MaxFooterLines)...)
	return warnings
}

func (p Profile) checkLines(kind string, lines []string, limit int) []string {
	var warnings []string
	if len(lines) > limit {
		warnings = append(warnings, fmt.Sprintf("model %s: too many %s lines (%d/%d), extra lines dropped",
			p.Model, kind, len(lines), limit))
	}
	for i, l := range lines {
		if n := len([]rune(l)); p.MaxLineWidth > 0 && n > p.MaxLineWidth {
			warnings = append(warnings, fmt.Sprintf("model %s: %s line %d too wide (%d/%d), will be truncated",
				p.Model, kind, i+1, n, p.MaxLineWidth))
		}
	}
	return warnings
}

// FitLines drops blank lines and lines beyond limit and truncates the rest to the line
// width. A blank line would go out as a command with no fields.
func (p Profile) FitLines(lines []string, limit int) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, p.Truncate(l, Line))
	}
	return out
}
