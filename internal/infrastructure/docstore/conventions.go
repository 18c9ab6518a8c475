package docstore

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	pluralize "github.com/gertd/go-pluralize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultIdentitySeparator separador entre colección y secuencia ("customers-1").
const DefaultIdentitySeparator = '-'

const identityField = "ID"

// Conventions resuelve nombres de colección e identificadores de documentos.
type Conventions struct {
	separator rune

	mu          sync.Mutex
	plural      *pluralize.Client
	collections map[reflect.Type]string
}

// NewConventions crea las convenciones con el separador indicado (0 = '-').
func NewConventions(separator rune) *Conventions {
	if separator == 0 {
		separator = DefaultIdentitySeparator
	}
	return &Conventions{
		separator:   separator,
		plural:      pluralize.NewClient(),
		collections: make(map[reflect.Type]string),
	}
}

// Separator devuelve el separador configurado.
func (c *Conventions) Separator() rune {
	return c.separator
}

// CollectionName devuelve el plural en minúsculas del nombre del tipo: Customer -> customers.
func (c *Conventions) CollectionName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.collections[t]; ok {
		return name
	}
	// cases.Caser no es seguro entre goroutines; se crea uno por llamada.
	lower := cases.Lower(language.Und).String(t.Name())
	name := c.plural.Plural(lower)
	c.collections[t] = name
	return name
}

// DocumentID arma el identificador {coleccion}{separador}{secuencia}.
func (c *Conventions) DocumentID(collection string, seq int64) string {
	var b strings.Builder
	b.WriteString(collection)
	b.WriteRune(c.separator)
	b.WriteString(strconv.FormatInt(seq, 10))
	return b.String()
}

// entityValue valida que entity sea un puntero no nulo a struct con campo ID string.
func entityValue(entity any) (reflect.Value, error) {
	if entity == nil {
		return reflect.Value{}, fmt.Errorf("%w: nil", ErrInvalidEntity)
	}
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: se espera puntero a struct, recibido %T", ErrInvalidEntity, entity)
	}
	f := v.Elem().FieldByName(identityField)
	if !f.IsValid() || f.Kind() != reflect.String {
		return reflect.Value{}, fmt.Errorf("%w: %T no tiene campo %s string", ErrInvalidEntity, entity, identityField)
	}
	return v, nil
}

func identityOf(v reflect.Value) string {
	return v.Elem().FieldByName(identityField).String()
}

func setIdentity(v reflect.Value, id string) {
	v.Elem().FieldByName(identityField).SetString(id)
}

// checkEntityType valida que t sea *T con T struct y campo ID string.
func checkEntityType(t reflect.Type) error {
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: se espera puntero a struct, recibido %s", ErrInvalidEntity, t)
	}
	f, ok := t.Elem().FieldByName(identityField)
	if !ok || f.Type.Kind() != reflect.String {
		return fmt.Errorf("%w: %s no tiene campo %s string", ErrInvalidEntity, t, identityField)
	}
	return nil
}
