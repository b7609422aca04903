package interest

import "fmt"

type (
	// TransactionFailed means the whole operation was rolled back
	TransactionFailed struct {
		Op    string
		cause error
	}
)

func (t TransactionFailed) Error() string {
	return fmt.Sprintf("%v: transaction rolled back", t.Op)
}

func (t TransactionFailed) Unwrap() error {
	return t.cause
}
