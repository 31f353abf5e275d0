package payment

import (
	"fmt"

	"github.com/NalimovStudio/TraumaBot/app/models"
)

// Plan is one purchasable subscription term. Amount is in the minor
// currency unit (kopecks).
type Plan struct {
	Tier   string
	Months int
	Amount int64
}

var plans = map[string]Plan{
	planKey(models.SUBSCRIPTION_STANDARD, 1):  {Tier: models.SUBSCRIPTION_STANDARD, Months: 1, Amount: 37900},
	planKey(models.SUBSCRIPTION_STANDARD, 3):  {Tier: models.SUBSCRIPTION_STANDARD, Months: 3, Amount: 109900},
	planKey(models.SUBSCRIPTION_STANDARD, 6):  {Tier: models.SUBSCRIPTION_STANDARD, Months: 6, Amount: 199900},
	planKey(models.SUBSCRIPTION_STANDARD, 12): {Tier: models.SUBSCRIPTION_STANDARD, Months: 12, Amount: 439900},
	planKey(models.SUBSCRIPTION_PRO, 1):       {Tier: models.SUBSCRIPTION_PRO, Months: 1, Amount: 74900},
	planKey(models.SUBSCRIPTION_PRO, 3):       {Tier: models.SUBSCRIPTION_PRO, Months: 3, Amount: 199900},
	planKey(models.SUBSCRIPTION_PRO, 6):       {Tier: models.SUBSCRIPTION_PRO, Months: 6, Amount: 439900},
	planKey(models.SUBSCRIPTION_PRO, 12):      {Tier: models.SUBSCRIPTION_PRO, Months: 12, Amount: 889900},
}

func planKey(tier string, months int) string {
	return fmt.Sprintf("%s:%d", tier, months)
}

// PlanFor returns the purchasable plan for a tier and term length.
func PlanFor(tier string, months int) (Plan, bool) {
	p, ok := plans[planKey(tier, months)]
	return p, ok
}

// Description renders the human label for a plan.
func (p Plan) Description() string {
	return fmt.Sprintf("%s subscription, %d month(s)", p.Tier, p.Months)
}
