package entity

// Customer representa un cliente registrado. Se persiste como un documento
// independiente; las etiquetas json definen la forma del documento.
type Customer struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Address *Address `json:"address,omitempty"`
}

// Address es un objeto de valor embebido en Customer (sin identidad propia).
type Address struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
	Country    string `json:"country"`
}

// Replace sobrescribe todos los campos mutables con los de other. El ID no cambia.
func (c *Customer) Replace(other Customer) {
	c.Name = other.Name
	c.Email = other.Email
	if other.Address == nil {
		c.Address = nil
		return
	}
	addr := *other.Address
	c.Address = &addr
}
