// Package mapper преобразует запись исходного файла в тело заказа для API платформы.
package mapper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/orderload-system/internal/model"
	"github.com/mmeshcher/orderload-system/internal/validation"
)

// MaxLineItems ограничивает число слотов позиций в одной записи исходного файла.
const MaxLineItems = 5

// ErrNoProducts возвращается для записи без единой пригодной позиции заказа.
// Такая запись пропускается без обращения к платформе.
var ErrNoProducts = errors.New("record has no valid line items")

// BuildOrder строит тело заказа из одной записи. Функция чистая: одинаковая
// запись всегда даёт одинаковый результат.
func BuildOrder(rec model.Record) (*model.OrderPayload, error) {
	customer := buildCustomer(rec)
	shipping := buildShippingAddress(rec, customer)
	billing := buildBillingAddress(rec, shipping)

	items := buildLineItems(rec)
	if len(items) == 0 {
		return nil, ErrNoProducts
	}

	currency := rec["currency"]
	if currency == "" {
		currency = "USD"
	}

	shippingPrice := validation.ParsePrice(rec["shipping_price"])

	order := &model.OrderPayload{
		Customer:               customer,
		ShippingAddress:        shipping,
		BillingAddress:         billing,
		LineItems:              items,
		Currency:               currency,
		FinancialStatus:        financialStatus(rec["payment_method"]),
		FulfillmentStatus:      "unshipped",
		SendReceipt:            true,
		SendFulfillmentReceipt: false,
		PriceInfo: model.PriceInfo{
			TotalShippingPrice:         validation.FormatPrice(shippingPrice),
			TaxesIncluded:              false,
			CurrentExtraTotalDiscounts: "0.00",
		},
		OrderNote: rec["order_note"],
	}

	if shippingPrice > 0 {
		order.ShippingLine = &model.ShippingLine{
			Title: "Standard Shipping",
			Price: validation.FormatPrice(shippingPrice),
			Code:  "STANDARD",
		}
	}

	return order, nil
}

func buildCustomer(rec model.Record) model.Customer {
	areaCode := rec["customer_area_code"]
	if areaCode == "" {
		areaCode = "+1"
	}

	return model.Customer{
		Email:     rec["customer_email"],
		FirstName: rec["customer_first_name"],
		LastName:  rec["customer_last_name"],
		Phone:     rec["customer_phone"],
		AreaCode:  areaCode,
	}
}

func buildShippingAddress(rec model.Record, c model.Customer) model.Address {
	return model.Address{
		Address1:    rec["shipping_address1"],
		Address2:    rec["shipping_address2"],
		City:        rec["shipping_city"],
		Province:    rec["shipping_province"],
		Country:     rec["shipping_country"],
		CountryCode: rec["shipping_country_code"],
		Zip:         rec["shipping_zip"],
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		Phone:       c.Phone,
		Company:     rec["shipping_company"],
	}
}

// buildBillingAddress возвращает копию адреса доставки, если поле
// billing_different не выставлено. Иначе каждое платёжное поле берётся из
// записи с откатом к соответствующему полю доставки.
func buildBillingAddress(rec model.Record, shipping model.Address) model.Address {
	if !validation.IsTruthy(rec["billing_different"]) {
		billing := shipping
		billing.SameAsReceiver = true
		return billing
	}

	return model.Address{
		Address1:    fallback(rec["billing_address1"], shipping.Address1),
		Address2:    fallback(rec["billing_address2"], shipping.Address2),
		City:        fallback(rec["billing_city"], shipping.City),
		Province:    fallback(rec["billing_province"], shipping.Province),
		Country:     fallback(rec["billing_country"], shipping.Country),
		CountryCode: fallback(rec["billing_country_code"], shipping.CountryCode),
		Zip:         fallback(rec["billing_zip"], shipping.Zip),
		FirstName:   shipping.FirstName,
		LastName:    shipping.LastName,
		Email:       shipping.Email,
		Phone:       shipping.Phone,
		Company:     fallback(rec["billing_company"], shipping.Company),
	}
}

// buildLineItems собирает позиции из нумерованных слотов записи. Слот входит
// в заказ только при непустом названии и строго положительной цене.
func buildLineItems(rec model.Record) []model.LineItem {
	var items []model.LineItem

	for n := 1; n <= MaxLineItems; n++ {
		title := rec[fmt.Sprintf("product_%d_name", n)]
		price := validation.ParsePrice(rec[fmt.Sprintf("product_%d_price", n)])
		if title == "" || price <= 0 {
			continue
		}

		items = append(items, model.LineItem{
			Title:            title,
			Price:            validation.FormatPrice(price),
			Quantity:         validation.ParseQuantity(rec[fmt.Sprintf("product_%d_quantity", n)]),
			RequiresShipping: true,
			Taxable:          true,
			SKU:              rec[fmt.Sprintf("product_%d_sku", n)],
		})
	}

	return items
}

func financialStatus(paymentMethod string) model.FinancialStatus {
	switch strings.ToUpper(strings.TrimSpace(paymentMethod)) {
	case "PAID", "ONLINE", "CREDIT_CARD", "PAYPAL":
		return model.FinancialStatusPaid
	case "PENDING", "PROCESSING":
		return model.FinancialStatusPending
	case "AUTHORIZED", "AUTH":
		return model.FinancialStatusAuthorized
	default:
		return model.FinancialStatusUnpaid
	}
}

func fallback(value, def string) string {
	if value != "" {
		return value
	}
	return def
}
