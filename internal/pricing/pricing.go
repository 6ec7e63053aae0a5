package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/iurnickita/eventbilling/internal/model"
)

// Tiers - эффективная разбивка мероприятия по категориям гостей.
type Tiers struct {
	AdultCount    int
	JuvenileCount int
	ChildCount    int
	AdultPrice    decimal.Decimal
	JuvenilePrice decimal.Decimal
	ChildPrice    decimal.Decimal
}

// Quantities - количества по категориям.
type Quantities struct {
	Adult    int
	Juvenile int
	Child    int
}

func (q Quantities) Total() int {
	return q.Adult + q.Juvenile + q.Child
}

// Counts возвращает контрактные количества.
func (tiers Tiers) Counts() Quantities {
	return Quantities{Adult: tiers.AdultCount, Juvenile: tiers.JuvenileCount, Child: tiers.ChildCount}
}

// Value - стоимость количеств по ценам категорий.
func (tiers Tiers) Value(q Quantities) decimal.Decimal {
	return tiers.AdultPrice.Mul(decimal.NewFromInt(int64(q.Adult))).
		Add(tiers.JuvenilePrice.Mul(decimal.NewFromInt(int64(q.Juvenile)))).
		Add(tiers.ChildPrice.Mul(decimal.NewFromInt(int64(q.Child))))
}

// Normalize приводит обе схемы цен к одной разбивке по категориям.
// Устаревшая схема отображается на взрослую категорию.
// Все расчеты (создание, изменение, превью, индексация) обязаны идти через нее.
func Normalize(data model.EventData) Tiers {
	if data.ActiveScheme() == model.PricingSchemeTiered && data.SectionTotal() > 0 {
		return Tiers{
			AdultCount:    data.AdultCount,
			JuvenileCount: data.JuvenileCount,
			ChildCount:    data.ChildCount,
			AdultPrice:    data.AdultPrice,
			JuvenilePrice: data.JuvenilePrice,
			ChildPrice:    data.ChildPrice,
		}
	}

	if data.DishCount > 0 {
		return Tiers{
			AdultCount:    data.DishCount,
			AdultPrice:    data.PricePerDish,
			JuvenilePrice: decimal.Zero,
			ChildPrice:    decimal.Zero,
		}
	}

	return Tiers{AdultPrice: decimal.Zero, JuvenilePrice: decimal.Zero, ChildPrice: decimal.Zero}
}

// Remaining - неоплаченный остаток. Переплата не дает отрицательных значений.
func Remaining(tiers Tiers, covered Covered) Quantities {
	return Quantities{
		Adult:    max(0, tiers.AdultCount-covered.Adult),
		Juvenile: max(0, tiers.JuvenileCount-covered.Juvenile),
		Child:    max(0, tiers.ChildCount-covered.Child),
	}
}

// OverCovered - true, если платежи покрывают больше, чем по договору.
func OverCovered(tiers Tiers, covered Covered) bool {
	return covered.Adult > tiers.AdultCount ||
		covered.Juvenile > tiers.JuvenileCount ||
		covered.Child > tiers.ChildCount
}
