package profile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Overrides are optional replacements for profile fields. Nil fields keep the base value.
type Overrides struct {
	MaxLineWidth       *int    `yaml:"maxLineWidth"`
	MaxHeaderLines     *int    `yaml:"maxHeaderLines"`
	MaxFooterLines     *int    `yaml:"maxFooterLines"`
	MaxItemNameLength  *int    `yaml:"maxItemNameLength"`
	MaxItemsPerReceipt *int    `yaml:"maxItemsPerReceipt"`
	SupportsEReceipt   *bool   `yaml:"supportsEReceipt"`
	SupportsInvoice    *bool   `yaml:"supportsInvoice"`
	SupportsBarcode    *bool   `yaml:"supportsBarcode"`
	ProtocolVersion    *string `yaml:"protocolVersion"`
}

// Override keys, relative to the configuration prefix (POSNET_CUSTOM_ in the environment).
const (
	KeyBase               = "BASE"
	KeyMaxLineWidth       = "MAX_LINE_WIDTH"
	KeyMaxHeaderLines     = "MAX_HEADER_LINES"
	KeyMaxFooterLines     = "MAX_FOOTER_LINES"
	KeyMaxItemNameLength  = "MAX_ITEM_NAME_LENGTH"
	KeyMaxItemsPerReceipt = "MAX_ITEMS_PER_RECEIPT"
	KeySupportsEReceipt   = "SUPPORTS_E_RECEIPT"
	KeySupportsInvoice    = "SUPPORTS_INVOICE"
	KeySupportsBarcode    = "SUPPORTS_BARCODE"
	KeyProtocolVersion    = "PROTOCOL_VERSION"
)

// OverrideKeys lists every key ParseOverrides reads.
var OverrideKeys = []string{
	KeyMaxLineWidth, KeyMaxHeaderLines, KeyMaxFooterLines, KeyMaxItemNameLength,
	KeyMaxItemsPerReceipt, KeySupportsEReceipt, KeySupportsInvoice, KeySupportsBarcode,
	KeyProtocolVersion,
}

type bounds struct{ min, max int }

var limits = map[string]bounds{
	KeyMaxLineWidth:       {16, 80},
	KeyMaxHeaderLines:     {0, 20},
	KeyMaxFooterLines:     {0, 20},
	KeyMaxItemNameLength:  {8, 80},
	KeyMaxItemsPerReceipt: {1, 1000},
}

// ParseOverrides reads override values through lookup. Empty values are skipped.
func ParseOverrides(lookup func(key string) string) (Overrides, error) {
	var o Overrides
	var errs []error
	intField := func(key string, dst **int) {
		s := strings.TrimSpace(lookup(key))
		if s == "" {
			return
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a number", key, s))
			return
		}
		*dst = &v
	}
	boolField := func(key string, dst **bool) {
		s := strings.TrimSpace(lookup(key))
		if s == "" {
			return
		}
		v, err := strconv.ParseBool(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, s))
			return
		}
		*dst = &v
	}
	intField(KeyMaxLineWidth, &o.MaxLineWidth)
	intField(KeyMaxHeaderLines, &o.MaxHeaderLines)
	intField(KeyMaxFooterLines, &o.MaxFooterLines)
	intField(KeyMaxItemNameLength, &o.MaxItemNameLength)
	intField(KeyMaxItemsPerReceipt, &o.MaxItemsPerReceipt)
	boolField(KeySupportsEReceipt, &o.SupportsEReceipt)
	boolField(KeySupportsInvoice, &o.SupportsInvoice)
	boolField(KeySupportsBarcode, &o.SupportsBarcode)
	if s := strings.TrimSpace(lookup(KeyProtocolVersion)); s != "" {
		o.ProtocolVersion = &s
	}
	return o, errors.Join(errs...)
}

// LoadOverridesFile reads overrides from a YAML file.
func LoadOverridesFile(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, fmt.Errorf("profile: read %s: %w", path, err)
	}
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Overrides{}, fmt.Errorf("profile: parse %s: %w", path, err)
	}
	return o, nil
}

// Builder assembles the custom profile from a built-in base and overrides applied in order.
type Builder struct {
	base      string
	overrides []Overrides
}

// NewBuilder starts from the named built-in model. An empty name means DefaultModel.
func NewBuilder(base string) *Builder {
	if strings.TrimSpace(base) == "" {
		base = DefaultModel
	}
	return &Builder{base: base}
}

// Apply queues o; later overrides win.
func (b *Builder) Apply(o Overrides) *Builder {
	b.overrides = append(b.overrides, o)
	return b
}

// Build validates and returns the custom profile.
func (b *Builder) Build() (Profile, error) {
	base, ok := Builtin(b.base)
	if !ok || base.Model == CustomModel {
		return Profile{}, fmt.Errorf("profile: unknown base model %q", b.base)
	}
	p := base
	p.Model = CustomModel
	for _, o := range b.overrides {
		setInt(&p.MaxLineWidth, o.MaxLineWidth)
		setInt(&p.MaxHeaderLines, o.MaxHeaderLines)
		setInt(&p.MaxFooterLines, o.MaxFooterLines)
		setInt(&p.MaxItemNameLength, o.MaxItemNameLength)
		setInt(&p.MaxItemsPerReceipt, o.MaxItemsPerReceipt)
		setBool(&p.SupportsEReceipt, o.SupportsEReceipt)
		setBool(&p.SupportsInvoice, o.SupportsInvoice)
		setBool(&p.SupportsBarcode, o.SupportsBarcode)
		if o.ProtocolVersion != nil {
			p.ProtocolVersion = *o.ProtocolVersion
		}
	}

	values := map[string]int{
		KeyMaxLineWidth:       p.MaxLineWidth,
		KeyMaxHeaderLines:     p.MaxHeaderLines,
		KeyMaxFooterLines:     p.MaxFooterLines,
		KeyMaxItemNameLength:  p.MaxItemNameLength,
		KeyMaxItemsPerReceipt: p.MaxItemsPerReceipt,
	}
	var errs []error
	for _, key := range OverrideKeys {
		v, checked := values[key]
		if !checked {
			continue
		}
		if l := limits[key]; v < l.min || v > l.max {
			errs = append(errs, fmt.Errorf("%s=%d outside %d..%d", key, v, l.min, l.max))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Profile{}, fmt.Errorf("profile: invalid custom profile: %w", err)
	}
	return p, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
