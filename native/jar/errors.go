package jar

import "errors"

var (
	ErrNilState           = errors.New("jar engine: state not configured")
	ErrNilTransferer      = errors.New("jar engine: token transferer not configured")
	ErrInvalidAmount      = errors.New("jar: amount must be positive")
	ErrAmountOutOfCap     = errors.New("jar: amount is out of product cap bounds")
	ErrProductNotFound    = errors.New("jar: product is not found")
	ErrProductExists      = errors.New("jar: product already registered")
	ErrProductDisabled    = errors.New("jar: product is disabled")
	ErrInvalidProduct     = errors.New("jar: invalid product")
	ErrAccountNotFound    = errors.New("jar: account is not found")
	ErrJarNotFound        = errors.New("jar: jar for product is not found")
	ErrJarBusy            = errors.New("jar: another operation on this jar is in progress")
	ErrSignatureRequired  = errors.New("jar: signature is required")
	ErrSignatureMismatch  = errors.New("jar: not matching signature")
	ErrTicketExpired      = errors.New("jar: ticket is expired")
	ErrTicketRequired     = errors.New("jar: ticket is required")
	ErrNonceMismatch      = errors.New("jar: nonce mismatch")
	ErrNothingToRestake   = errors.New("jar: nothing to restake")
	ErrNotEnoughToRestake = errors.New("jar: not enough funds to restake")
	ErrScoreFromFuture    = errors.New("jar: score timestamp is in the future")
	ErrPendingNotFound    = errors.New("jar: pending transfer is not found")
)
