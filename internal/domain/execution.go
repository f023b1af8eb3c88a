package domain

import "time"

// Outcome es el estado terminal de un intento de copia.
// Máquina de estados por source_id: unseen → attempted(pending) → {success, failure}.
// attempted es terminal respecto a reintentos: nunca se vuelve a unseen.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// CopyOrder es la orden que enviamos al CLOB en respuesta a una observación.
type CopyOrder struct {
	ID          string // UUID local
	SourceID    string // tx hash de la observación que la originó
	ConditionID string
	TokenID     string
	Side        Side
	Price       float64
	TokenSize   float64
	USDSize     float64
	Title       string
	PlacedAt    time.Time
}

// OrderResult es la respuesta del venue a una orden enviada.
type OrderResult struct {
	OrderID string
	Status  string
}

// ExecutionRecord es el registro durable de un intento. Se crea exactamente
// una vez por source_id en el instante en que empieza el intento — antes de
// enviar la orden — y nunca se recrea. Es el ancla que impide duplicados.
type ExecutionRecord struct {
	SourceID    string
	AttemptedAt time.Time
	Outcome     Outcome
	Order       CopyOrder
	Result      string // order id, o mensaje de error del venue
}
