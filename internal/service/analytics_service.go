package service

import (
	"context"
	"fmt"
	"time"

	"backend/internal/repository"
	"backend/pkg/apperr"

	"github.com/shopspring/decimal"
)

// Supported dashboard periods
const (
	PeriodWeek    = "week"
	PeriodMonth   = "month"
	PeriodQuarter = "quarter"
	PeriodYear    = "year"
)

type DashboardResponse struct {
	Period            string `json:"period"`
	PeriodStart       string `json:"period_start"`
	PeriodEnd         string `json:"period_end"`
	TotalRevenue      string `json:"total_revenue"`
	InvoiceRevenue    string `json:"invoice_revenue"`
	PaymentRevenue    string `json:"payment_revenue"`
	PaidInvoices      int64  `json:"paid_invoices"`
	CompletedPayments int64  `json:"completed_payments"`
	NewLeads          int64  `json:"new_leads"`
	ConversionRate    string `json:"conversion_rate"` // Percentage, 0..100
}

// AnalyticsService aggregates revenue and funnel figures for the admin
// dashboard. All figures are derived at read time from the underlying tables.
type AnalyticsService interface {
	Dashboard(ctx context.Context, period string) (DashboardResponse, error)
}

type analyticsService struct {
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	leadRepo    repository.LeadRepository
	now         func() time.Time
}

func NewAnalyticsService(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	leadRepo repository.LeadRepository,
) AnalyticsService {
	return &analyticsService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		leadRepo:    leadRepo,
		now:         time.Now,
	}
}

func (s *analyticsService) Dashboard(ctx context.Context, period string) (DashboardResponse, error) {
	if period == "" {
		period = PeriodMonth
	}

	start, end, err := periodRange(period, s.now())
	if err != nil {
		return DashboardResponse{}, err
	}

	invoiceRevenue, err := s.invoiceRepo.SumPaidBetween(ctx, start, end)
	if err != nil {
		return DashboardResponse{}, fmt.Errorf("failed to sum invoice revenue: %w", err)
	}
	paymentRevenue, err := s.paymentRepo.SumCompletedBetween(ctx, start, end)
	if err != nil {
		return DashboardResponse{}, fmt.Errorf("failed to sum payment revenue: %w", err)
	}
	paidInvoices, err := s.invoiceRepo.CountPaidBetween(ctx, start, end)
	if err != nil {
		return DashboardResponse{}, fmt.Errorf("failed to count paid invoices: %w", err)
	}
	completedPayments, err := s.paymentRepo.CountCompletedBetween(ctx, start, end)
	if err != nil {
		return DashboardResponse{}, fmt.Errorf("failed to count completed payments: %w", err)
	}
	newLeads, err := s.leadRepo.CountBetween(ctx, start, end)
	if err != nil {
		return DashboardResponse{}, fmt.Errorf("failed to count leads: %w", err)
	}

	return DashboardResponse{
		Period:            period,
		PeriodStart:       start.Format(time.RFC3339),
		PeriodEnd:         end.Format(time.RFC3339),
		TotalRevenue:      invoiceRevenue.Add(paymentRevenue).StringFixed(2),
		InvoiceRevenue:    invoiceRevenue.StringFixed(2),
		PaymentRevenue:    paymentRevenue.StringFixed(2),
		PaidInvoices:      paidInvoices,
		CompletedPayments: completedPayments,
		NewLeads:          newLeads,
		ConversionRate:    conversionRate(paidInvoices+completedPayments, newLeads).StringFixed(1),
	}, nil
}

// periodRange resolves a named period to a half-open [start, end) window
// ending now.
func periodRange(period string, now time.Time) (time.Time, time.Time, error) {
	switch period {
	case PeriodWeek:
		return now.AddDate(0, 0, -7), now, nil
	case PeriodMonth:
		return now.AddDate(0, -1, 0), now, nil
	case PeriodQuarter:
		return now.AddDate(0, -3, 0), now, nil
	case PeriodYear:
		return now.AddDate(-1, 0, 0), now, nil
	default:
		return time.Time{}, time.Time{}, apperr.New(apperr.Validation, "unknown period %q, expected week, month, quarter or year", period)
	}
}

// conversionRate is the share of leads that resulted in a sale, as a
// percentage clamped to [0, 100]. Zero leads yields zero, not a division
// error. Sales and leads are counted over the same window, so a sale from an
// older lead can push the raw ratio above 100; it is clamped rather than
// reported as an impossibility.
func conversionRate(sales, leads int64) decimal.Decimal {
	if leads <= 0 {
		return decimal.Zero
	}
	rate := decimal.NewFromInt(sales).Div(decimal.NewFromInt(leads)).Mul(decimal.NewFromInt(100))
	if rate.IsNegative() {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	if rate.GreaterThan(hundred) {
		return hundred
	}
	return rate
}
