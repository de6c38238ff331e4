package store

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Kind identifies one of the three inventory collections.
// The value doubles as the category written into identifier codes.
type Kind string

const (
	KindMaterial Kind = "material"
	KindTool     Kind = "herramienta"
	KindProduct  Kind = "producto"
)

// Kinds lists every collection in mirror order.
var Kinds = []Kind{KindMaterial, KindTool, KindProduct}

// ParseKind accepts the canonical kind value or its English alias.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "material", "materials", "materiales":
		return KindMaterial, nil
	case "herramienta", "tool", "tools", "herramientas":
		return KindTool, nil
	case "producto", "product", "products", "productos":
		return KindProduct, nil
	}
	return "", errors.Errorf("unknown inventory kind %q", s)
}

func (k Kind) Valid() bool {
	return k == KindMaterial || k == KindTool || k == KindProduct
}

// Base holds the columns every inventory row has.
type Base struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"nombre"`
	ImageURL  string    `json:"imagen_url,omitempty"`
	QRCode    string    `json:"QR_Code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Entity is implemented by *Material, *Tool and *Product.
type Entity interface {
	Kind() Kind
	Common() *Base
	// Fields returns pointers to the kind-specific columns in Schema order.
	Fields() []any
}

type Material struct {
	Base
	Reference       string `json:"referencia"`
	Units           string `json:"unidades"`
	Stock           string `json:"stock"`
	MinStock        string `json:"stock_minimo"`
	Price           string `json:"precio"`
	Category        string `json:"categoria"`
	Supplier        string `json:"proveedor"`
	Description     string `json:"descripcion"`
	AcquisitionDate string `json:"fecha_adquisicion"`
	Location        string `json:"ubicacion"`
}

func (m *Material) Kind() Kind    { return KindMaterial }
func (m *Material) Common() *Base { return &m.Base }
func (m *Material) Fields() []any {
	return []any{
		&m.Reference, &m.Units, &m.Stock, &m.MinStock, &m.Price, &m.Category,
		&m.Supplier, &m.Description, &m.AcquisitionDate, &m.Location,
	}
}

type Tool struct {
	Base
	Model           string `json:"modelo"`
	SerialNumber    string `json:"numero_serie"`
	Status          string `json:"estado"`
	AcquisitionDate string `json:"fecha_adquisicion"`
	LastMaintenance string `json:"ultimo_mantenimiento"`
	NextMaintenance string `json:"proximo_mantenimiento"`
	Location        string `json:"ubicacion"`
	Owner           string `json:"responsable"`
	Description     string `json:"descripcion"`
}

func (t *Tool) Kind() Kind    { return KindTool }
func (t *Tool) Common() *Base { return &t.Base }
func (t *Tool) Fields() []any {
	return []any{
		&t.Model, &t.SerialNumber, &t.Status, &t.AcquisitionDate, &t.LastMaintenance,
		&t.NextMaintenance, &t.Location, &t.Owner, &t.Description,
	}
}

// SizeStock is the stock of one shoe size.
type SizeStock struct {
	Size     string `json:"numero"`
	Stock    int    `json:"stock"`
	MinStock int    `json:"stockMinimo"`
}

// SizeList is stored as a JSON column.
type SizeList []SizeStock

func (l SizeList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]SizeStock(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *SizeList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return errors.Errorf("unsupported size list type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var sizes []SizeStock
	if err := json.Unmarshal(raw, &sizes); err != nil {
		return errors.Wrap(err, "failed to unmarshal sizes")
	}
	*l = sizes
	return nil
}

type Product struct {
	Base
	Price             string   `json:"precio"`
	Stock             string   `json:"stock"`
	MinStock          string   `json:"stock_minimo"`
	Category          string   `json:"categoria"`
	Description       string   `json:"descripcion"`
	Sizes             SizeList `json:"tallas"`
	Colors            string   `json:"colores"`
	ManufacturingTime string   `json:"tiempo_fabricacion"`
	Featured          bool     `json:"destacado"`
}

func (p *Product) Kind() Kind    { return KindProduct }
func (p *Product) Common() *Base { return &p.Base }
func (p *Product) Fields() []any {
	return []any{
		&p.Price, &p.Stock, &p.MinStock, &p.Category, &p.Description,
		&p.Sizes, &p.Colors, &p.ManufacturingTime, &p.Featured,
	}
}

// NewEntity returns an empty entity of the given kind.
func NewEntity(kind Kind) (Entity, error) {
	switch kind {
	case KindMaterial:
		return &Material{}, nil
	case KindTool:
		return &Tool{}, nil
	case KindProduct:
		return &Product{}, nil
	}
	return nil, errors.Errorf("unknown inventory kind %q", kind)
}

// Clone returns a deep copy so snapshots never share mutable state.
func Clone(e Entity) Entity {
	switch v := e.(type) {
	case *Material:
		c := *v
		return &c
	case *Tool:
		c := *v
		return &c
	case *Product:
		c := *v
		if v.Sizes != nil {
			c.Sizes = append(SizeList(nil), v.Sizes...)
		}
		return &c
	}
	return e
}

// Persisted reports whether the entity carries a durable id.
func Persisted(e Entity) bool {
	return e != nil && e.Common().ID != ""
}

// MatchesName is the local equivalent of the remote name filter:
// case-insensitive substring match on the display name.
func MatchesName(e Entity, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Common().Name), strings.ToLower(query))
}
