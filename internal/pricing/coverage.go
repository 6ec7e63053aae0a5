package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/iurnickita/eventbilling/internal/model"
)

// Covered - итог по всем платежам: оплаченные количества и их стоимость
// по ценам на момент оплаты.
type Covered struct {
	Quantities
	Value decimal.Decimal
}

// Aggregate сворачивает платежи в покрытые количества и стоимость.
// Порядок платежей не важен. Если у платежа нет снимка цены, берется
// текущая цена категории из tiers.
func Aggregate(payments []model.Payment, tiers Tiers) Covered {
	covered := Covered{Value: decimal.Zero}

	for _, payment := range payments {
		q := quantities(payment.Data.Coverage)
		if q.Total() == 0 {
			continue
		}

		priced := Tiers{
			AdultPrice:    snapshotOr(payment.Data.Coverage.AdultPrice, tiers.AdultPrice),
			JuvenilePrice: snapshotOr(payment.Data.Coverage.JuvenilePrice, tiers.JuvenilePrice),
			ChildPrice:    snapshotOr(payment.Data.Coverage.ChildPrice, tiers.ChildPrice),
		}

		covered.Adult += q.Adult
		covered.Juvenile += q.Juvenile
		covered.Child += q.Child
		covered.Value = covered.Value.Add(priced.Value(q))
	}

	return covered
}

func quantities(coverage model.Coverage) Quantities {
	switch coverage.Kind {
	case model.CoverageTiered:
		return Quantities{Adult: coverage.Adult, Juvenile: coverage.Juvenile, Child: coverage.Child}
	case model.CoverageFlat:
		// тарелки старой схемы идут во взрослую категорию
		return Quantities{Adult: coverage.Adult}
	default:
		return Quantities{}
	}
}

func snapshotOr(snapshot decimal.NullDecimal, current decimal.Decimal) decimal.Decimal {
	if snapshot.Valid {
		return snapshot.Decimal
	}
	return current
}
