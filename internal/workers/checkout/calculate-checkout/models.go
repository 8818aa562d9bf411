package calculatecheckout

// CheckoutReadyEvent is the SNS message type consumed by the payment step.
const CheckoutReadyEvent = "checkout_ready"

type Input struct {
	TransactionID string   `json:"transactionId"`
	UserID        string   `json:"userId,omitempty"`
	SelectedIDs   []string `json:"selectedIds"`
}

type Output struct {
	QuantidadeSelecionada int      `json:"quantidadeSelecionada"`
	StartupsSelecionadas  []string `json:"startupsSelecionadas"`
	Subtotal              float64  `json:"subtotal"`
	DescontoPrimeiro      float64  `json:"descontoPrimeiro"`
	DescontoPacote        float64  `json:"descontoPacote"`
	ValorTotal            float64  `json:"valorTotal"`
	PrimeiraCompra        bool     `json:"primeiraCompra"`
	NotificationID        string   `json:"checkoutNotificationId,omitempty"`
}

// checkoutMessage is the payload published for the payment step.
type checkoutMessage struct {
	TransactionID   string   `json:"transactionId"`
	UserID          string   `json:"userId"`
	SelectedIDs     []string `json:"startupsSelecionadas"`
	TotalCents      int64    `json:"valorTotalCentavos"`
	FirstPurchase   bool     `json:"primeiraCompra"`
	StatusPagamento string   `json:"statusPagamento"`
}

func GetInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"transactionId", "selectedIds"},
		"properties": map[string]interface{}{
			"transactionId": map[string]interface{}{"type": "string", "minLength": 1},
			"userId":        map[string]interface{}{"type": "string"},
			"selectedIds": map[string]interface{}{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]interface{}{"type": "string", "minLength": 1},
			},
		},
	}
}
