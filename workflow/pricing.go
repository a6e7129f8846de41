package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var oneHundred = decimal.NewFromInt(100)

// PriceBreakdown itemizes one price computation so the counter staff
// can show the customer how the number was built.
type PriceBreakdown struct {
	NetWeight         decimal.Decimal `json:"net_weight"`
	WastagePercentage decimal.Decimal `json:"wastage_percentage"`
	EffectiveWeight   decimal.Decimal `json:"effective_weight"`
	RatePerGram       decimal.Decimal `json:"rate_per_gram"`
	MetalValue        decimal.Decimal `json:"metal_value"`
	MakingCharge      decimal.Decimal `json:"making_charge"`
	Total             decimal.Decimal `json:"total"`
	// RateId and ComputedAt record which rate row produced the number
	// and when; zero for the pure formula, stamped by the rate-board
	// wrappers.
	RateId     int       `json:"rate_id,omitempty"`
	ComputedAt time.Time `json:"computed_at,omitempty"`
}

// ComputePrice applies the counter formula:
//
//	effectiveWeight = netWeight * (1 + wastage%/100)
//	price           = round(effectiveWeight * ratePerGram + makingCharge, 2)
//
// It is deterministic: same inputs, same price, no clock and no
// database.
func ComputePrice(netWeight, wastagePct, ratePerGram, makingCharge decimal.Decimal) PriceBreakdown {
	effectiveWeight := netWeight.Mul(decimal.NewFromInt(1).Add(wastagePct.Div(oneHundred)))
	metalValue := effectiveWeight.Mul(ratePerGram)
	total := utils.RoundMoney(metalValue.Add(makingCharge))
	return PriceBreakdown{
		NetWeight:         netWeight,
		WastagePercentage: wastagePct,
		EffectiveWeight:   effectiveWeight,
		RatePerGram:       ratePerGram,
		MetalValue:        utils.RoundMoney(metalValue),
		MakingCharge:      makingCharge,
		Total:             total,
	}
}

// breakdownForRate prices a product against one specific rate row and
// stamps the audit fields, so the caller can always answer which rate
// produced a quoted number and when.
func breakdownForRate(product *models.Product, rate *models.RateMaster, at time.Time) PriceBreakdown {
	breakdown := ComputePrice(product.NetWeight, product.WastagePercentage, rate.RatePerGram, product.MakingCharge)
	breakdown.RateId = rate.ID
	breakdown.ComputedAt = at
	return breakdown
}

// ComputeProductPrice prices one product off the current rate board.
// Returns RateNotFoundError when no rate window covers now. The rate
// used and the computation time are stamped on the breakdown and
// logged.
func ComputeProductPrice(ctx context.Context, productId int) (*PriceBreakdown, error) {
	product, err := models.GetProduct(ctx, productId)
	if err != nil {
		return nil, err
	}

	rate, err := models.GetCurrentRate(ctx, product.MetalType, product.Purity)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, &RateNotFoundError{MetalType: product.MetalType, Purity: product.Purity}
		}
		return nil, err
	}

	breakdown := breakdownForRate(product, rate, time.Now().UTC())
	config.GetLogger().WithFields(logrus.Fields{
		"product_id":    productId,
		"rate_id":       rate.ID,
		"rate_per_gram": rate.RatePerGram.StringFixed(2),
		"total":         breakdown.Total.StringFixed(2),
		"computed_at":   breakdown.ComputedAt.Format(time.RFC3339),
	}).Info("product price computed")
	return &breakdown, nil
}

// RefreshProductPrices recomputes and stores CurrentPrice for every
// product of the given metal and purity. Called after a rate change so
// the cached price column tracks the board. Products with no current
// rate are skipped and reported, not failed.
func RefreshProductPrices(ctx context.Context, logger *logrus.Logger, metalType models.MetalType, purity string) (int, error) {
	rate, err := models.GetCurrentRate(ctx, metalType, purity)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return 0, &RateNotFoundError{MetalType: metalType, Purity: purity}
		}
		return 0, err
	}

	db := config.GetDB()
	var products []*models.Product
	err = db.WithContext(ctx).
		Where("metal_type = ? AND purity = ?", metalType, purity).
		Find(&products).Error
	if err != nil {
		return 0, err
	}

	updated := 0
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, product := range products {
			breakdown := ComputePrice(product.NetWeight, product.WastagePercentage, rate.RatePerGram, product.MakingCharge)
			if err := tx.Model(product).Update("current_price", breakdown.Total).Error; err != nil {
				config.LogError(logger, "workflow", "RefreshProductPrices", "updating current price", product.ID, err)
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.WithFields(logrus.Fields{
		"metal_type": metalType,
		"purity":     purity,
		"updated":    updated,
	}).Info("product prices refreshed")

	return updated, nil
}
