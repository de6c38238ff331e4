// Package extract turns supplier documents, label photos or pasted text
// into a best-effort Material field mapping.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/shopfloor/store"
)

// UnidentifiedName is the name given to a material nothing could be read from.
const UnidentifiedName = "Material sin identificar"

// Source is what the operator hands to extraction: a file or raw text.
// Text takes precedence when both are set.
type Source struct {
	Filename    string
	ContentType string
	Data        []byte
	Text        string
}

// Extractor returns a best-effort Material mapping. The result is never
// persisted by the extractor; callers merge it with PreferExisting.
type Extractor interface {
	ExtractMaterial(ctx context.Context, src Source) (*store.Material, error)
}

// Fields is the wire shape of an extraction result.
type Fields struct {
	Nombre           flexString `json:"nombre"`
	Referencia       flexString `json:"referencia"`
	Unidades         flexString `json:"unidades"`
	Stock            flexString `json:"stock"`
	StockMinimo      flexString `json:"stockMinimo"`
	Precio           flexString `json:"precio"`
	Categoria        flexString `json:"categoria"`
	Proveedor        flexString `json:"proveedor"`
	Descripcion      flexString `json:"descripcion"`
	FechaAdquisicion flexString `json:"fechaAdquisicion"`
	Ubicacion        flexString `json:"ubicacion"`
}

// Material converts the mapping into an unsaved Material.
func (f Fields) Material() *store.Material {
	m := &store.Material{
		Reference:       f.Referencia.String(),
		Units:           f.Unidades.String(),
		Stock:           f.Stock.String(),
		MinStock:        f.StockMinimo.String(),
		Price:           f.Precio.String(),
		Category:        f.Categoria.String(),
		Supplier:        f.Proveedor.String(),
		Description:     f.Descripcion.String(),
		AcquisitionDate: f.FechaAdquisicion.String(),
		Location:        f.Ubicacion.String(),
	}
	m.Name = f.Nombre.String()
	if m.Name == "" {
		m.Name = UnidentifiedName
	}
	return m
}

// ParseFields decodes the JSON object embedded in a model reply, ignoring
// any prose or code fences around it.
func ParseFields(reply string) (Fields, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Fields{}, errors.New("no JSON object in reply")
	}
	var f Fields
	if err := json.Unmarshal([]byte(reply[start:end+1]), &f); err != nil {
		return Fields{}, errors.Wrap(err, "failed to decode extraction JSON")
	}
	return f, nil
}

// Fallback derives a mapping from text alone: the first plausible line is
// the name and the leading text is the description.
func Fallback(text string) *store.Material {
	f := Fields{
		Nombre:      UnidentifiedName,
		Stock:       "0",
		StockMinimo: "0",
		Precio:      "0",
		Descripcion: "Sin descripción",
	}
	if strings.TrimSpace(text) != "" {
		f.Descripcion = flexString(truncateRunes(text, 200))
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if n := len([]rune(line)); n > 3 && n < 50 {
				f.Nombre = flexString(line)
				break
			}
		}
	}
	return f.Material()
}

// PreferExisting merges an extraction result into form state field by field.
// A non-blank current value always wins; extracted values only fill blanks.
// Identity columns (id, code address, creation time) come from current.
func PreferExisting(current, extracted *store.Material) *store.Material {
	if current == nil {
		current = &store.Material{}
	}
	merged := store.Clone(current).(*store.Material)
	if extracted == nil {
		return merged
	}

	merged.Name = prefer(merged.Name, extracted.Name)
	merged.ImageURL = prefer(merged.ImageURL, extracted.ImageURL)

	dst, src := merged.Fields(), extracted.Fields()
	for i := range dst {
		d, ok := dst[i].(*string)
		if !ok {
			continue
		}
		if s, ok := src[i].(*string); ok {
			*d = prefer(*d, *s)
		}
	}
	return merged
}

func prefer(current, extracted string) string {
	if strings.TrimSpace(current) != "" {
		return current
	}
	return extracted
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// flexString accepts JSON strings, numbers and null, since models are
// inconsistent about quoting numeric fields.
type flexString string

func (s flexString) String() string {
	return strings.TrimSpace(string(s))
}

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return errors.Errorf("unsupported value %s", b)
		}
		*s = flexString(n.String())
	}
	return nil
}
