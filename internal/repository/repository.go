// Package repository é o Record Store do marketplace: operações tipadas de
// create/read/update/find sobre gorm. Todos os métodos recebem o *gorm.DB a usar,
// de modo que o chamador decide se a operação roda dentro de uma transação.
package repository

import (
	"errors"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KromaEnergia/api-marketplace/internal/apperr"
)

// notFoundOr converte gorm.ErrRecordNotFound em apperr NotFound e embrulha o resto.
func notFoundOr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(err, apperr.KindNotFound, what+" not found")
	}
	return eris.Wrapf(err, "repository: find %s", what)
}

// createErr classifica violações de unicidade como Duplicate antes de embrulhar.
func createErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Wrap(err, apperr.KindDuplicate, what+" already exists")
	}
	return eris.Wrapf(err, "repository: create %s", what)
}

// forUpdate adiciona SELECT ... FOR UPDATE quando o banco suporta. O SQLite
// serializa escritas no nível do arquivo, então a cláusula é omitida lá.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// ListFilter restringe listagens ao dono quando OwnerID não é vazio.
type ListFilter struct {
	OwnerID string
}
