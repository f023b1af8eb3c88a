package domain

import (
	"errors"
	"fmt"
)

// ErrQuoteUnavailable indica que no hay cotización para un token.
// Nunca es fatal: el tracker degrada al precio medio de entrada.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// TransportError envuelve fallos de red o de API al hablar con un
// colaborador externo. El caller salta el ciclo actual y reintenta en el
// siguiente; nunca es fatal.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport devuelve true si err es (o envuelve) un TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// OrderRejectedError indica que el venue rechazó la orden. Terminal para
// ese source_id: se registra como failure y no se reintenta jamás.
type OrderRejectedError struct {
	Reason string
}

func (e *OrderRejectedError) Error() string {
	return "order rejected: " + e.Reason
}

// IsOrderRejected devuelve true si err es (o envuelve) un OrderRejectedError.
func IsOrderRejected(err error) bool {
	var re *OrderRejectedError
	return errors.As(err, &re)
}
