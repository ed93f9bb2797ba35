// Package model содержит доменные сущности сервиса загрузки заказов.
package model

// Record представляет одну строку исходного файла: имя поля -> значение.
// Идентичность записи определяется её порядковым номером в файле (с единицы).
type Record map[string]string

// FinancialStatus описывает платёжный статус заказа на стороне платформы.
type FinancialStatus string

const (
	FinancialStatusPaid       FinancialStatus = "paid"
	FinancialStatusPending    FinancialStatus = "pending"
	FinancialStatusAuthorized FinancialStatus = "authorized"
	FinancialStatusUnpaid     FinancialStatus = "unpaid"
)

// Customer описывает покупателя заказа.
type Customer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	AreaCode  string `json:"area_code"`
}

// Address описывает адрес доставки или плательщика.
type Address struct {
	Address1       string `json:"address1"`
	Address2       string `json:"address2,omitempty"`
	City           string `json:"city"`
	Province       string `json:"province"`
	Country        string `json:"country"`
	CountryCode    string `json:"country_code"`
	Zip            string `json:"zip"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	Company        string `json:"company,omitempty"`
	SameAsReceiver bool   `json:"same_as_receiver"`
}

// LineItem описывает одну позицию заказа.
type LineItem struct {
	Title            string `json:"title"`
	Price            string `json:"price"`
	Quantity         int    `json:"quantity"`
	RequiresShipping bool   `json:"requires_shipping"`
	Taxable          bool   `json:"taxable"`
	SKU              string `json:"sku,omitempty"`
}

// PriceInfo содержит стоимостные параметры заказа.
type PriceInfo struct {
	TotalShippingPrice         string `json:"total_shipping_price"`
	TaxesIncluded              bool   `json:"taxes_included"`
	CurrentExtraTotalDiscounts string `json:"current_extra_total_discounts"`
}

// ShippingLine описывает способ доставки заказа.
type ShippingLine struct {
	Title string `json:"title"`
	Price string `json:"price"`
	Code  string `json:"code"`
}

// OrderPayload представляет тело заказа для API платформы.
type OrderPayload struct {
	Customer               Customer        `json:"customer"`
	ShippingAddress        Address         `json:"shipping_address"`
	BillingAddress         Address         `json:"billing_address"`
	LineItems              []LineItem      `json:"line_items"`
	Currency               string          `json:"currency"`
	FinancialStatus        FinancialStatus `json:"financial_status"`
	FulfillmentStatus      string          `json:"fulfillment_status"`
	SendReceipt            bool            `json:"send_receipt"`
	SendFulfillmentReceipt bool            `json:"send_fulfillment_receipt"`
	PriceInfo              PriceInfo       `json:"price_info"`
	OrderNote              string          `json:"order_note,omitempty"`
	ShippingLine           *ShippingLine   `json:"shipping_line,omitempty"`
}

// RunState содержит контрольную точку прогона: номер последней полностью
// обработанной записи. Нулевое значение означает, что прогон ещё не начинался.
type RunState struct {
	LastProcessedIndex int `json:"last_processed_index"`
}

// Summary содержит итоговую статистику завершённого или остановленного прогона.
type Summary struct {
	Total   int     `json:"total"`
	Success int     `json:"success"`
	Failed  int     `json:"failed"`
	Skipped int     `json:"skipped"`
	Rate    float64 `json:"rate"`
}

// EventType описывает тип события прогона.
type EventType string

const (
	EventLog      EventType = "log"
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
	EventStopped  EventType = "stopped"
)

// Event представляет одно событие прогона для потребителей прогресса.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Current int       `json:"current,omitempty"`
	Total   int       `json:"total,omitempty"`
	Summary *Summary  `json:"summary,omitempty"`
}

// RunStatus описывает текущее состояние прогона.
type RunStatus struct {
	Running bool `json:"running"`
	Current int  `json:"current"`
	Total   int  `json:"total"`
}
