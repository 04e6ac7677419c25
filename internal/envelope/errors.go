package envelope

import "fmt"

// Kind enumerates the error taxonomy from spec.md §7. Callers should
// errors.As into *FabricError and switch on Kind rather than matching
// error strings.
type Kind int

const (
	KindConfigError Kind = iota
	KindLedgerUnavailable
	KindThrottled
	KindBusUnavailable
	KindIntegrityError
	KindAnchorNotConfirmed
	KindUnknownRecipient
	KindHandlerError
)

func (k Kind) String() string {
	switch k {
	case KindConfigError:
		return "ConfigError"
	case KindLedgerUnavailable:
		return "LedgerUnavailable"
	case KindThrottled:
		return "Throttled"
	case KindBusUnavailable:
		return "BusUnavailable"
	case KindIntegrityError:
		return "IntegrityError"
	case KindAnchorNotConfirmed:
		return "AnchorNotConfirmed"
	case KindUnknownRecipient:
		return "UnknownRecipient"
	case KindHandlerError:
		return "HandlerError"
	default:
		return "Unknown"
	}
}

// FabricError is the single discriminated error type returned across the
// fabric's public surface, per the "mixed sync/async error returns" design
// note in spec.md §9.
type FabricError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *FabricError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FabricError) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, &FabricError{Kind: KindX}) to match on Kind
// alone, ignoring Message/Cause.
func (e *FabricError) Is(target error) bool {
	t, ok := target.(*FabricError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *FabricError {
	return &FabricError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *FabricError {
	return &FabricError{Kind: kind, Message: message, Cause: cause}
}
