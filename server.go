package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/SaravananKiruba/boolapos-sub001/utils"
	"github.com/SaravananKiruba/boolapos-sub001/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultPort = "8080"

type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func getRedisClient(redisAddress string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
}

// respondError maps domain errors onto HTTP statuses. Conflicts and
// guard violations are 409 so the caller knows a retry with the same
// payload can behave differently; validation problems are 400.
func respondError(c *gin.Context, err error) {
	var validationErr models.ValidationError
	var rateErr *workflow.RateNotFoundError
	var stockErr *workflow.InsufficientStockError
	var receiptErr *workflow.OverReceiptError
	var paymentErr *workflow.OverpaymentError

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error(), "field": validationErr.Field})
	case errors.As(err, &rateErr):
		c.JSON(http.StatusNotFound, gin.H{"error": rateErr.Error()})
	case errors.As(err, &stockErr),
		errors.As(err, &receiptErr),
		errors.As(err, &paymentErr),
		errors.Is(err, workflow.ErrAllocationConflict),
		errors.Is(err, workflow.ErrIdempotencyInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrCustomerHasOrders),
		errors.Is(err, models.ErrSupplierHasPurchases),
		errors.Is(err, models.ErrProductHasStock),
		errors.Is(err, models.ErrPurchaseOrderNotEmpty),
		errors.Is(err, models.ErrOrderNotCancellable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func registerCustomerRoutes(r *gin.Engine) {
	r.POST("/customers", func(c *gin.Context) {
		var input models.NewCustomer
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		customer, err := models.CreateCustomer(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, customer)
	})
	r.GET("/customers", func(c *gin.Context) {
		var name *string
		if v := c.Query("name"); v != "" {
			name = &v
		}
		customers, err := models.GetCustomers(c.Request.Context(), name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, customers)
	})
	r.GET("/customers/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		customer, err := models.GetCustomer(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, customer)
	})
	r.PUT("/customers/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewCustomer
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		customer, err := models.UpdateCustomer(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, customer)
	})
	r.DELETE("/customers/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		customer, err := models.DeleteCustomer(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, customer)
	})
}

func registerSupplierRoutes(r *gin.Engine) {
	r.POST("/suppliers", func(c *gin.Context) {
		var input models.NewSupplier
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		supplier, err := models.CreateSupplier(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, supplier)
	})
	r.GET("/suppliers", func(c *gin.Context) {
		var name *string
		if v := c.Query("name"); v != "" {
			name = &v
		}
		suppliers, err := models.GetSuppliers(c.Request.Context(), name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, suppliers)
	})
	r.GET("/suppliers/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		supplier, err := models.GetSupplier(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, supplier)
	})
	r.PUT("/suppliers/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewSupplier
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		supplier, err := models.UpdateSupplier(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, supplier)
	})
	r.DELETE("/suppliers/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		supplier, err := models.DeleteSupplier(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, supplier)
	})
}

func registerProductRoutes(r *gin.Engine) {
	r.POST("/products", func(c *gin.Context) {
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		product, err := models.CreateProduct(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	})
	r.GET("/products", func(c *gin.Context) {
		var name *string
		if v := c.Query("name"); v != "" {
			name = &v
		}
		products, err := models.GetProducts(c.Request.Context(), name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
	})
	r.GET("/products/reorder-alerts", func(c *gin.Context) {
		products, err := models.GetProductsBelowReorderLevel(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
	})
	r.GET("/products/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		product, err := models.GetProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	})
	// Read-only price quote off the current rate board, with the full
	// breakdown for the counter display.
	r.GET("/products/:id/price", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		breakdown, err := workflow.ComputeProductPrice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, breakdown)
	})
	r.PUT("/products/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		product, err := models.UpdateProduct(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	})
	r.DELETE("/products/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		product, err := models.DeleteProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	})
}

func registerRateRoutes(r *gin.Engine, logger *logrus.Logger) {
	r.POST("/rates", func(c *gin.Context) {
		var input models.NewRateMaster
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rate, err := models.CreateRateMaster(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		// The rate board moved; cached product prices follow it.
		if _, err := workflow.RefreshProductPrices(c.Request.Context(), logger, input.MetalType, input.Purity); err != nil {
			config.LogError(logger, "server.go", "POST /rates", "refreshing product prices", input, err)
		}
		c.JSON(http.StatusCreated, rate)
	})
	r.GET("/rates", func(c *gin.Context) {
		var metalType *models.MetalType
		if v := c.Query("metal_type"); v != "" {
			mt := models.MetalType(v)
			metalType = &mt
		}
		rates, err := models.GetRates(c.Request.Context(), metalType)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rates)
	})
	r.GET("/rates/current", func(c *gin.Context) {
		metalType := models.MetalType(c.Query("metal_type"))
		purity := c.Query("purity")
		if metalType == "" || purity == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "metal_type and purity are required"})
			return
		}
		rate, err := models.GetCurrentRate(c.Request.Context(), metalType, purity)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rate)
	})
	r.POST("/rates/:id/deactivate", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		rate, err := models.DeactivateRate(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rate)
	})
}

func registerPurchaseOrderRoutes(r *gin.Engine, logger *logrus.Logger) {
	r.POST("/purchase-orders", func(c *gin.Context) {
		var input models.NewPurchaseOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		po, err := models.CreatePurchaseOrder(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, po)
	})
	r.GET("/purchase-orders", func(c *gin.Context) {
		var status *models.PurchaseOrderStatus
		if v := c.Query("status"); v != "" {
			s := models.PurchaseOrderStatus(v)
			status = &s
		}
		orders, err := models.GetPurchaseOrders(c.Request.Context(), status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	})
	r.GET("/purchase-orders/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		po, err := models.GetPurchaseOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, po)
	})
	r.POST("/purchase-orders/:id/confirm", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		po, err := models.ConfirmPurchaseOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, po)
	})
	r.POST("/purchase-orders/:id/cancel", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		po, err := models.CancelPurchaseOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, po)
	})
	r.POST("/purchase-orders/:id/receive", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input workflow.ReceiveItemsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		input.PurchaseOrderId = id
		po, err := workflow.ReceivePurchaseOrder(c.Request.Context(), logger, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, po)
	})
	r.POST("/purchase-orders/:id/payments", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input workflow.NewPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		entry, err := workflow.PostPurchasePayment(c.Request.Context(), logger, id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	})
}

func registerOrderRoutes(r *gin.Engine, logger *logrus.Logger) {
	r.POST("/orders", func(c *gin.Context) {
		var input models.NewOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		order, err := workflow.PlaceOrder(c.Request.Context(), logger, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	})
	r.GET("/orders", func(c *gin.Context) {
		var customerId *int
		if v := c.Query("customer_id"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				customerId = &id
			}
		}
		var status *models.OrderStatus
		if v := c.Query("status"); v != "" {
			s := models.OrderStatus(v)
			status = &s
		}
		orders, err := models.GetOrders(c.Request.Context(), customerId, status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	})
	r.GET("/orders/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		order, err := models.GetOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	})
	r.POST("/orders/:id/complete", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		order, err := workflow.CompleteOrder(c.Request.Context(), logger, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	})
	r.POST("/orders/:id/cancel", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var body struct {
			Reason string `json:"reason"`
		}
		_ = c.ShouldBindJSON(&body)
		order, err := workflow.CancelOrder(c.Request.Context(), logger, id, body.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	})
	r.POST("/orders/:id/payments", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input workflow.NewPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		entry, err := workflow.PostOrderPayment(c.Request.Context(), logger, id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	})
	r.POST("/orders/:id/emi-schedule", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var body struct {
			Installments int        `json:"installments" binding:"required"`
			FirstDueDate *time.Time `json:"first_due_date"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		firstDue := time.Now().UTC().AddDate(0, 1, 0)
		if body.FirstDueDate != nil {
			firstDue = *body.FirstDueDate
		}
		entries, err := workflow.GenerateEMISchedule(c.Request.Context(), logger, id, body.Installments, firstDue)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entries)
	})
	r.GET("/orders/:id/emi-schedule", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		entries, err := models.GetEMISchedule(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	})
	r.POST("/emi-entries/:id/payments", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input workflow.NewPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		entry, err := workflow.RecordEMIPayment(c.Request.Context(), logger, id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	})
}

func registerStockRoutes(r *gin.Engine, logger *logrus.Logger) {
	r.GET("/stock-items", func(c *gin.Context) {
		var productId *int
		if v := c.Query("product_id"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				productId = &id
			}
		}
		var status *models.StockItemStatus
		if v := c.Query("status"); v != "" {
			s := models.StockItemStatus(v)
			status = &s
		}
		items, err := models.GetStockItems(c.Request.Context(), productId, status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	})
	r.GET("/stock-items/tag/:tag", func(c *gin.Context) {
		item, err := models.GetStockItemByTag(c.Request.Context(), c.Param("tag"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})
	r.GET("/stock-movements", func(c *gin.Context) {
		var stockItemId, orderId *int
		if v := c.Query("stock_item_id"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				stockItemId = &id
			}
		}
		if v := c.Query("order_id"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				orderId = &id
			}
		}
		movements, err := models.GetStockMovements(c.Request.Context(), stockItemId, orderId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, movements)
	})
	r.GET("/stock-lots", func(c *gin.Context) {
		var productId *int
		if v := c.Query("product_id"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				productId = &id
			}
		}
		lots, err := models.GetStockLots(c.Request.Context(), productId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, lots)
	})
	r.POST("/stock-items/:id/damage", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var body struct {
			Notes string `json:"notes"`
		}
		_ = c.ShouldBindJSON(&body)
		db := config.GetDB()
		var item *models.StockItem
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			var txErr error
			item, txErr = workflow.MarkStockItemDamaged(tx, logger, id, body.Notes, utils.GetUserName(c.Request.Context()))
			return txErr
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})
	r.POST("/stock-items/:id/return", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var body struct {
			Notes string `json:"notes"`
		}
		_ = c.ShouldBindJSON(&body)
		db := config.GetDB()
		var item *models.StockItem
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			var txErr error
			item, txErr = workflow.ReturnSoldItem(tx, logger, id, body.Notes, utils.GetUserName(c.Request.Context()))
			return txErr
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})
}

func registerOpsRoutes(r *gin.Engine, logger *logrus.Logger) {
	notifier := &workflow.LogNotifier{Logger: logger}

	r.GET("/finance-entries", func(c *gin.Context) {
		var orderId, purchaseOrderId *int
		if v := c.Query("order_id"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				orderId = &id
			}
		}
		if v := c.Query("purchase_order_id"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				purchaseOrderId = &id
			}
		}
		entries, err := models.GetFinanceEntries(c.Request.Context(), orderId, purchaseOrderId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	})

	r.GET("/settings", func(c *gin.Context) {
		settings, err := models.GetSettings(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, settings)
	})
	r.PUT("/settings/:key", func(c *gin.Context) {
		var body struct {
			Value string `json:"value"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		setting, err := models.UpsertSetting(c.Request.Context(), c.Param("key"), body.Value)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, setting)
	})

	// Ops tooling (admin only).
	r.POST("/internal/ops/reconciliation-checks", func(c *gin.Context) {
		findings, err := workflow.RunReconciliationChecks(c.Request.Context(), logger)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"findings": findings})
	})
	r.POST("/internal/ops/release-stale-reservations", func(c *gin.Context) {
		var body struct {
			OlderThanMinutes int `json:"older_than_minutes" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cancelled, err := workflow.ReleaseStaleReservations(c.Request.Context(), logger,
			time.Duration(body.OlderThanMinutes)*time.Minute)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
	})
	r.POST("/internal/ops/notify-low-stock", func(c *gin.Context) {
		count, err := workflow.NotifyLowStock(c.Request.Context(), notifier)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notified": count})
	})
	r.POST("/internal/ops/notify-overdue-emis", func(c *gin.Context) {
		count, err := workflow.NotifyOverdueEMIs(c.Request.Context(), notifier)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notified": count})
	})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP; until DB/Redis are ready, app
	// endpoints return 503.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerCustomerRoutes(r)
	registerSupplierRoutes(r)
	registerProductRoutes(r)
	registerRateRoutes(r, logger)
	registerPurchaseOrderRoutes(r, logger)
	registerOrderRoutes(r, logger)
	registerStockRoutes(r, logger)
	registerOpsRoutes(r, logger)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running it as a
	// separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger logs only requests that collected errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// RateLimitMiddleware enforces a fixed-window per-IP request budget in
// Redis.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
