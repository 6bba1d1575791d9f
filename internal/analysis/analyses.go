package analysis

import (
	"fmt"
	"sort"

	"github.com/iliyamo/rental-analytics/internal/dataset"
	"github.com/iliyamo/rental-analytics/internal/model"
)

// Analysis names, in canonical order.
const (
	FilmsPerCategory      = "films_per_category"
	TopActorsByRentals    = "top_actors_by_rentals"
	TopRevenueCategory    = "top_revenue_category"
	FilmsNotInInventory   = "films_not_in_inventory"
	TopChildrenActors     = "top_children_actors"
	CityCustomerActivity  = "city_customer_activity"
	CityCategoryRentHours = "city_category_rent_hours"
)

// Output columns computed by the analyses.
const (
	ColFilms         = "films"
	ColRents         = "rents"
	ColMoneySpent    = "money_spent"
	ColChildrenFilms = "children_films"
	ColTotalUsers    = "total_users"
	ColNonActive     = "non_active"
	ColSumHours      = "sum_hours"
)

// Analysis is one fixed question over the catalog.
type Analysis struct {
	Name        string
	Description string
	Needs       []model.Entity
	run         func(Config, *Catalog) (*dataset.Dataset, error)
}

func registry() []Analysis {
	return []Analysis{
		{
			Name:        FilmsPerCategory,
			Description: "Number of films in each category, most first",
			Needs:       []model.Entity{model.Category, model.FilmCategory},
			run:         filmsPerCategory,
		},
		{
			Name:        TopActorsByRentals,
			Description: "Actors whose films were rented the most",
			Needs:       []model.Entity{model.Actor, model.FilmActor, model.Film, model.Inventory, model.Rental},
			run:         topActorsByRentals,
		},
		{
			Name:        TopRevenueCategory,
			Description: "Category with the highest total payments",
			Needs:       []model.Entity{model.Category, model.FilmCategory, model.Film, model.Inventory, model.Rental, model.Payment},
			run:         topRevenueCategory,
		},
		{
			Name:        FilmsNotInInventory,
			Description: "Titles of films with no inventory copies",
			Needs:       []model.Entity{model.Film, model.Inventory},
			run:         filmsNotInInventory,
		},
		{
			Name:        TopChildrenActors,
			Description: "Actors appearing most in one category, ties included",
			Needs:       []model.Entity{model.Actor, model.FilmActor, model.Film, model.FilmCategory, model.Category},
			run:         topChildrenActors,
		},
		{
			Name:        CityCustomerActivity,
			Description: "Active and non-active customers per city, most non-active first",
			Needs:       []model.Entity{model.Customer, model.Address, model.City},
			run:         cityCustomerActivity,
		},
		{
			Name:        CityCategoryRentHours,
			Description: "Per selected city, the category with the most rental hours",
			Needs:       []model.Entity{model.Category, model.FilmCategory, model.Film, model.Inventory, model.Rental, model.Customer, model.Address, model.City},
			run:         cityCategoryRentHours,
		},
	}
}

func filmsPerCategory(_ Config, c *Catalog) (*dataset.Dataset, error) {
	return newPipeline(FilmsPerCategory, c).
		from(model.Category).
		join(model.FilmCategory, dataset.Inner, model.ColCategoryID).
		aggregate([]string{model.ColName}, dataset.Count(model.ColFilmID).As(ColFilms)).
		orderBy(dataset.Desc(ColFilms)).
		result()
}

func topActorsByRentals(cfg Config, c *Catalog) (*dataset.Dataset, error) {
	return newPipeline(TopActorsByRentals, c).
		from(model.Actor).
		join(model.FilmActor, dataset.Inner, model.ColActorID).
		join(model.Film, dataset.Inner, model.ColFilmID).
		join(model.Inventory, dataset.Inner, model.ColFilmID).
		join(model.Rental, dataset.Inner, model.ColInventoryID).
		aggregate([]string{model.ColActorID, model.ColFirstName, model.ColLastName}, dataset.Count(model.ColRentalDate).As(ColRents)).
		orderBy(dataset.Desc(ColRents)).
		limit(cfg.TopActors).
		result()
}

func topRevenueCategory(_ Config, c *Catalog) (*dataset.Dataset, error) {
	return newPipeline(TopRevenueCategory, c).
		from(model.Category).
		join(model.FilmCategory, dataset.Inner, model.ColCategoryID).
		join(model.Film, dataset.Inner, model.ColFilmID).
		join(model.Inventory, dataset.Inner, model.ColFilmID).
		join(model.Rental, dataset.Inner, model.ColInventoryID).
		join(model.Payment, dataset.Inner, model.ColRentalID).
		aggregate([]string{model.ColName}, dataset.Sum(model.ColAmount).As(ColMoneySpent)).
		withColumn(ColMoneySpent, dataset.Round(dataset.Col(ColMoneySpent), 2)).
		orderBy(dataset.Desc(ColMoneySpent)).
		limit(1).
		result()
}

// filmsNotInInventory computes the catalog gap twice, as film LEFT JOIN
// inventory and as inventory RIGHT JOIN film, and fails unless both forms
// return the same titles.
func filmsNotInInventory(_ Config, c *Catalog) (*dataset.Dataset, error) {
	left, err := newPipeline(FilmsNotInInventory, c).
		from(model.Film).
		join(model.Inventory, dataset.Left, model.ColFilmID).
		filter(model.Inventory, dataset.IsNull(dataset.Col(model.ColInventoryID))).
		selectCols(model.ColTitle).
		result()
	if err != nil {
		return nil, err
	}
	right, err := newPipeline(FilmsNotInInventory, c).
		from(model.Inventory).
		join(model.Film, dataset.Right, model.ColFilmID).
		filter(model.Inventory, dataset.IsNull(dataset.Col(model.ColInventoryID))).
		selectCols(model.ColTitle).
		result()
	if err != nil {
		return nil, err
	}
	if !sameTitles(left, right) {
		return nil, &StageError{
			Analysis: FilmsNotInInventory,
			Stage:    "consistency",
			Entity:   model.Inventory,
			Err:      fmt.Errorf("%w: %d vs %d titles", errInconsistent, left.Len(), right.Len()),
		}
	}
	return left, nil
}

func sameTitles(a, b *dataset.Dataset) bool {
	if a.Len() != b.Len() {
		return false
	}
	titles := func(d *dataset.Dataset) []string {
		out := make([]string, d.Len())
		for i := range out {
			v, _ := d.Value(i, model.ColTitle)
			s, _ := v.(string)
			out[i] = s
		}
		sort.Strings(out)
		return out
	}
	ta, tb := titles(a), titles(b)
	for i := range ta {
		if ta[i] != tb[i] {
			return false
		}
	}
	return true
}

func topChildrenActors(cfg Config, c *Catalog) (*dataset.Dataset, error) {
	return newPipeline(TopChildrenActors, c).
		from(model.Actor).
		join(model.FilmActor, dataset.Inner, model.ColActorID).
		join(model.Film, dataset.Inner, model.ColFilmID).
		join(model.FilmCategory, dataset.Inner, model.ColFilmID).
		join(model.Category, dataset.Inner, model.ColCategoryID).
		filter(model.Category, dataset.Eq(dataset.Col(model.ColName), dataset.Lit(cfg.ChildrenCategory))).
		aggregate([]string{model.ColActorID, model.ColFirstName, model.ColLastName}, dataset.Count(model.ColActorID).As(ColChildrenFilms)).
		topNWithTies(cfg.ChildrenTop, dataset.Desc(ColChildrenFilms)).
		orderBy(dataset.Desc(ColChildrenFilms)).
		result()
}

func cityCustomerActivity(_ Config, c *Catalog) (*dataset.Dataset, error) {
	return newPipeline(CityCustomerActivity, c).
		from(model.Customer).
		join(model.Address, dataset.Inner, model.ColAddressID).
		join(model.City, dataset.Inner, model.ColCityID).
		aggregate([]string{model.ColCity},
			dataset.Sum(model.ColActive).OrZero().As(model.ColActive),
			dataset.Count(model.ColActive).As(ColTotalUsers),
		).
		withColumn(ColNonActive, dataset.Sub(dataset.Col(ColTotalUsers), dataset.Col(model.ColActive))).
		selectCols(model.ColCity, ColNonActive, model.ColActive).
		orderBy(dataset.Desc(ColNonActive)).
		result()
}

func cityCategoryRentHours(cfg Config, c *Catalog) (*dataset.Dataset, error) {
	p := newPipeline(CityCategoryRentHours, c)
	rental := p.table(model.Rental)
	if rental == nil {
		return p.result()
	}
	rentalTime, err := dataset.DurationHours(rental, model.ColReturnDate, model.ColLastUpdate, model.ColRentalDate, ColSumHours)
	if err == nil {
		rentalTime, err = rentalTime.Select(model.ColRentalID, model.ColInventoryID, model.ColCustomerID, ColSumHours)
	}
	if err != nil {
		return p.fail("derive", model.Rental, err).result()
	}

	cityFilter := dataset.Or(
		dataset.HasPrefix(dataset.Col(model.ColCity), cfg.CityPrefix),
		dataset.Contains(dataset.Col(model.ColCity), cfg.CitySubstring),
	)
	return p.
		from(model.Category).
		join(model.FilmCategory, dataset.Inner, model.ColCategoryID).
		join(model.Film, dataset.Inner, model.ColFilmID).
		join(model.Inventory, dataset.Inner, model.ColFilmID).
		joinWith(model.Rental, rentalTime, dataset.Inner, model.ColInventoryID).
		join(model.Customer, dataset.Inner, model.ColCustomerID).
		join(model.Address, dataset.Inner, model.ColAddressID).
		join(model.City, dataset.Inner, model.ColCityID).
		filter(model.City, cityFilter).
		aggregate([]string{model.ColCityID, model.ColCity, model.ColCategoryID, model.ColName}, dataset.Sum(ColSumHours).As(ColSumHours)).
		withColumn(ColSumHours, dataset.Round(dataset.Col(ColSumHours), 2)).
		leaders([]string{model.ColCityID}, dataset.Desc(ColSumHours)).
		orderBy(dataset.Asc(model.ColCity)).
		result()
}
