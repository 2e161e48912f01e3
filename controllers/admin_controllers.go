package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/utils"
)

type AdminController struct {
	DB *gorm.DB
}

func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{DB: db}
}

// GetDashboardStats summarises today's trade for the admin landing page.
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	startOfDay := time.Now().Truncate(24 * time.Hour)

	var todaySales float64
	ac.DB.Model(&models.Payment{}).
		Where("status = ? AND payment_date >= ?", models.PaymentStatusCompleted, startOfDay).
		Select("COALESCE(SUM(amount), 0)").Scan(&todaySales)

	var todayOrders int64
	ac.DB.Model(&models.Order{}).Where("created_at >= ?", startOfDay).Count(&todayOrders)

	orderStatuses := make(map[string]int64)
	for _, status := range []string{
		models.OrderStatusPending, models.OrderStatusProcessing,
		models.OrderStatusCompleted, models.OrderStatusCancelled,
	} {
		var n int64
		ac.DB.Model(&models.Order{}).Where("status = ? AND created_at >= ?", status, startOfDay).Count(&n)
		orderStatuses[status] = n
	}

	var activeTables, activeSessions int64
	ac.DB.Model(&models.Table{}).Where("status = ?", models.TableStatusActive).Count(&activeTables)
	ac.DB.Model(&models.DinerSession{}).Where("status = ?", models.SessionStatusActive).Count(&activeSessions)

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", gin.H{
		"today_sales":     todaySales,
		"today_orders":    todayOrders,
		"order_statuses":  orderStatuses,
		"active_tables":   activeTables,
		"active_sessions": activeSessions,
	})
}

// GetSalesReport aggregates the ledger over a date range: daily totals
// plus a per-method split. Dates are YYYY-MM-DD, end date inclusive.
func (ac *AdminController) GetSalesReport(c *gin.Context) {
	const layout = "2006-01-02"

	end := time.Now()
	start := end.AddDate(0, 0, -7)
	if s := c.Query("start_date"); s != "" {
		parsed, err := time.Parse(layout, s)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, &CustomError{"start_date must be YYYY-MM-DD"})
			return
		}
		start = parsed
	}
	if e := c.Query("end_date"); e != "" {
		parsed, err := time.Parse(layout, e)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, &CustomError{"end_date must be YYYY-MM-DD"})
			return
		}
		end = parsed.AddDate(0, 0, 1)
	}
	if !start.Before(end) {
		utils.RespondError(c, http.StatusBadRequest, &CustomError{"start_date must be before end_date"})
		return
	}

	var payments []models.Payment
	if err := ac.DB.
		Where("status = ? AND payment_date >= ? AND payment_date < ?",
			models.PaymentStatusCompleted, start, end).
		Order("payment_date asc").
		Find(&payments).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	type dayTotal struct {
		Date   string  `json:"date"`
		Total  float64 `json:"total"`
		Orders int     `json:"orders"`
	}
	daily := make(map[string]*dayTotal)
	byMethod := make(map[string]float64)
	var grandTotal, discountTotal float64

	for _, p := range payments {
		day := p.PaymentDate.Format(layout)
		if daily[day] == nil {
			daily[day] = &dayTotal{Date: day}
		}
		daily[day].Total += p.Amount
		daily[day].Orders++
		byMethod[p.Method] += p.Amount
		grandTotal += p.Amount
		discountTotal += p.DiscountAmount
	}

	series := make([]dayTotal, 0, len(daily))
	for cursor := start; cursor.Before(end); cursor = cursor.AddDate(0, 0, 1) {
		day := cursor.Format(layout)
		if entry, ok := daily[day]; ok {
			series = append(series, *entry)
		} else {
			series = append(series, dayTotal{Date: day})
		}
	}

	utils.RespondJSON(c, http.StatusOK, "Sales report", gin.H{
		"start_date":     start.Format(layout),
		"end_date":       end.AddDate(0, 0, -1).Format(layout),
		"grand_total":    grandTotal,
		"discount_total": discountTotal,
		"by_method":      byMethod,
		"daily":          series,
	})
}
