// Package model declares the rental schema the analyses read: one Entity per
// source table, the columns loaded for it and their kinds. Pipelines refer
// to columns through the constants below instead of raw strings.
package model

import (
	"fmt"

	"github.com/iliyamo/rental-analytics/internal/dataset"
)

// Entity names a source table of the rental schema.
type Entity string

const (
	Category     Entity = "category"
	Film         Entity = "film"
	FilmCategory Entity = "film_category"
	Actor        Entity = "actor"
	FilmActor    Entity = "film_actor"
	Inventory    Entity = "inventory"
	Rental       Entity = "rental"
	Payment      Entity = "payment"
	Customer     Entity = "customer"
	Address      Entity = "address"
	City         Entity = "city"
)

// Column names shared across entities. A key column carries the same name
// in every table that references it, which is what the joins rely on.
const (
	ColCategoryID  = "category_id"
	ColName        = "name" // category.name
	ColFilmID      = "film_id"
	ColTitle       = "title"
	ColActorID     = "actor_id"
	ColFirstName   = "first_name"
	ColLastName    = "last_name"
	ColInventoryID = "inventory_id"
	ColRentalID    = "rental_id"
	ColCustomerID  = "customer_id"
	ColRentalDate  = "rental_date"
	ColReturnDate  = "return_date" // nullable: rental still open
	ColLastUpdate  = "last_update"
	ColPaymentID   = "payment_id"
	ColAmount      = "amount"
	ColAddressID   = "address_id"
	ColActive      = "active" // 0 or 1
	ColCityID      = "city_id"
	ColCity        = "city"
)

// Entities lists every entity in a stable order.
var Entities = []Entity{
	Category, Film, FilmCategory, Actor, FilmActor, Inventory,
	Rental, Payment, Customer, Address, City,
}

var schemas = map[Entity][]dataset.Column{
	Category: {
		{Name: ColCategoryID, Kind: dataset.KindInt},
		{Name: ColName, Kind: dataset.KindString},
	},
	Film: {
		{Name: ColFilmID, Kind: dataset.KindInt},
		{Name: ColTitle, Kind: dataset.KindString},
	},
	FilmCategory: {
		{Name: ColFilmID, Kind: dataset.KindInt},
		{Name: ColCategoryID, Kind: dataset.KindInt},
	},
	Actor: {
		{Name: ColActorID, Kind: dataset.KindInt},
		{Name: ColFirstName, Kind: dataset.KindString},
		{Name: ColLastName, Kind: dataset.KindString},
	},
	FilmActor: {
		{Name: ColActorID, Kind: dataset.KindInt},
		{Name: ColFilmID, Kind: dataset.KindInt},
	},
	Inventory: {
		{Name: ColInventoryID, Kind: dataset.KindInt},
		{Name: ColFilmID, Kind: dataset.KindInt},
	},
	Rental: {
		{Name: ColRentalID, Kind: dataset.KindInt},
		{Name: ColInventoryID, Kind: dataset.KindInt},
		{Name: ColCustomerID, Kind: dataset.KindInt},
		{Name: ColRentalDate, Kind: dataset.KindTime},
		{Name: ColReturnDate, Kind: dataset.KindTime},
		{Name: ColLastUpdate, Kind: dataset.KindTime},
	},
	Payment: {
		{Name: ColPaymentID, Kind: dataset.KindInt},
		{Name: ColRentalID, Kind: dataset.KindInt},
		{Name: ColAmount, Kind: dataset.KindFloat},
	},
	Customer: {
		{Name: ColCustomerID, Kind: dataset.KindInt},
		{Name: ColAddressID, Kind: dataset.KindInt},
		{Name: ColActive, Kind: dataset.KindInt},
	},
	Address: {
		{Name: ColAddressID, Kind: dataset.KindInt},
		{Name: ColCityID, Kind: dataset.KindInt},
	},
	City: {
		{Name: ColCityID, Kind: dataset.KindInt},
		{Name: ColCity, Kind: dataset.KindString},
	},
}

// Schema returns the columns loaded for e.
func Schema(e Entity) ([]dataset.Column, bool) {
	cols, ok := schemas[e]
	if !ok {
		return nil, false
	}
	return append([]dataset.Column(nil), cols...), true
}

// Valid reports whether e is a known entity.
func (e Entity) Valid() bool {
	_, ok := schemas[e]
	return ok
}

// Check verifies that d carries every column declared for e with the
// declared kind. Extra columns are allowed.
func Check(e Entity, d *dataset.Dataset) error {
	cols, ok := schemas[e]
	if !ok {
		return fmt.Errorf("model: unknown entity %q", e)
	}
	for _, want := range cols {
		got, ok := d.Column(want.Name)
		if !ok {
			return &dataset.SchemaError{Op: "check " + string(e), Column: want.Name, Reason: "missing column"}
		}
		if got.Kind != want.Kind {
			return &dataset.SchemaError{Op: "check " + string(e), Column: want.Name, Reason: "kind " + got.Kind.String() + ", want " + want.Kind.String()}
		}
	}
	return nil
}

// Empty returns a zero-row dataset with e's schema.
func Empty(e Entity) *dataset.Dataset {
	cols, _ := Schema(e)
	return dataset.MustNew(cols, nil)
}
