package models

type Identifier interface {
	GetId() int
}

func (c Category) GetId() int {
	return c.ID
}

func (c Customer) GetId() int {
	return c.ID
}

func (p Product) GetId() int {
	return p.ID
}

func (s Sale) GetId() int {
	return s.ID
}

func (d SaleDetail) GetId() int {
	return d.ID
}
