package mercadopago

import (
	"encoding/json"
	"time"
)

type preferenceRequest struct {
	Items             []preferenceItem  `json:"items"`
	Payer             *preferencePayer  `json:"payer,omitempty"`
	ExternalReference string            `json:"external_reference"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	BackURLs          *backURLs         `json:"back_urls,omitempty"`
	AutoReturn        string            `json:"auto_return,omitempty"`
	PaymentMethods    preferenceMethods `json:"payment_methods"`
	StatementDesc     string            `json:"statement_descriptor,omitempty"`
	Expires           bool              `json:"expires,omitempty"`
	ExpirationDateTo  string            `json:"expiration_date_to,omitempty"`
}

type preferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

type preferencePayer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceMethods struct {
	ExcludedPaymentTypes []excludedType `json:"excluded_payment_types,omitempty"`
	Installments         int            `json:"installments,omitempty"`
}

type excludedType struct {
	ID string `json:"id"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// notification is the body Mercado Pago posts to notification_url.
type notification struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

type payment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
	PaymentTypeID     string      `json:"payment_type_id"`
	DateCreated       time.Time   `json:"date_created"`
	DateLastUpdated   time.Time   `json:"date_last_updated"`
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}
