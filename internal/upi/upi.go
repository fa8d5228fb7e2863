// Package upi builds UPI payment deep links for settlements.
//
// The link format is upi://pay?pa=<handle>&pn=<name>&am=<amount>&cu=INR&tn=<note>,
// understood by every UPI payment app. Building a link is pure string work;
// whether the payment actually happens is confirmed out of band through the
// settlement lifecycle.
package upi

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrNoUPIID indicates the payee has not set up a UPI handle.
var ErrNoUPIID = errors.New("payee has not set up UPI ID")

// DefaultNote is attached to links when the caller supplies none.
const DefaultNote = "ClearDues Settlement"

// DeepLink builds a upi://pay link requesting amount from the payer toward
// the payee's UPI handle.
func DeepLink(payeeUPIID, payeeName string, amount float64, note string) (string, error) {
	if payeeUPIID == "" {
		return "", ErrNoUPIID
	}
	if note == "" {
		note = DefaultNote
	}

	params := url.Values{}
	params.Set("pa", payeeUPIID)
	params.Set("pn", payeeName)
	params.Set("am", fmt.Sprintf("%.2f", amount))
	params.Set("cu", "INR")
	params.Set("tn", note)

	return "upi://pay?" + params.Encode(), nil
}
