package billing

import (
	"fmt"
	"time"
)

// InvoiceNumberPrefix is the display prefix for invoice numbers
const InvoiceNumberPrefix = "FACT"

// FormatInvoiceNumber renders an invoice number as FACT-YYYYMM-#### for the
// given period and sequence value, e.g. FormatInvoiceNumber(October 2023, 4)
// -> "FACT-202310-0004". Sequence values are issued by the repository's
// persisted per-period counter, never derived from collection length, so
// concurrent writers cannot race on the same number.
func FormatInvoiceNumber(period time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", InvoiceNumberPrefix, period.Format("200601"), seq)
}
