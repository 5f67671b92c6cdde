package models

// Role define o lado do marketplace de um usuário. Imutável após o cadastro.
type Role string

const (
	RoleManufacturer Role = "MANUFACTURER"
	RoleSupplier     Role = "SUPPLIER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleManufacturer || r == RoleSupplier
}

type User struct {
	Base
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         Role   `gorm:"size:20;not null" json:"role"`
	CompanyName  string `gorm:"size:255;not null" json:"companyName"`
	ContactName  string `gorm:"size:255" json:"contactName"`
	Phone        string `gorm:"size:50" json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
}

// Identity é o chamador autenticado, como devolvido pelo provedor de autenticação.
type Identity struct {
	UserID string
	Role   Role
}

// Authenticated reports whether the identity carries a user id.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}
