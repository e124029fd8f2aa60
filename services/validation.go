package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yashrajoria/storefront/models"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern = regexp.MustCompile(`^01[0-9]{9}$`)
	itemNamespace = regexp.MustCompile(`^CreateOrderRequest\.Items\[(\d+)\]\.(\w+)`)
)

const (
	msgItemsRequired    = "Order items are required and must be an array with at least one item"
	msgTotalRequired    = "Order total is required and must be a positive number"
	msgShippingRequired = "Shipping information is required"
	msgPaymentIntentID  = "Payment intent ID is required"
	msgAmountRequired   = "Payment amount is required and must be a positive number"
	msgAmountInteger    = "Payment amount must be a whole number of minor units"
	msgAmountTooLarge   = "Payment amount exceeds maximum limit"
	msgOrderTooLarge    = "Order total exceeds maximum payment amount"
	msgPasswordRequired = "Password is required and must be at least 6 characters long"
	msgCartItemFields   = "Product, size and color are required"
	msgCartQuantity     = "Quantity must be a positive number"
)

var shippingMessages = map[string]string{
	"FullName": "Full name is required and must be at least 3 characters long",
	"Email":    "Valid email address is required",
	"Phone":    "Valid Egyptian phone number is required (format: 01xxxxxxxxx)",
	"Address":  "Address is required and must be at least 5 characters long",
	"City":     "City is required and must be at least 2 characters long",
	"Country":  "Country is required and must be at least 2 characters long",
}

var shippingFieldOrder = []string{"FullName", "Email", "Phone", "Address", "City", "Country"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("storefront_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("eg_mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(strings.Join(strings.Fields(fl.Field().String()), ""))
	})
	return v
}

type itemProblems struct {
	missing  bool
	quantity bool
}

// ValidateOrderRequest returns one message per problem, in a stable order.
// It expects ShippingInfo to be normalized already.
func ValidateOrderRequest(req *models.CreateOrderRequest) []string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	var (
		itemsInvalid bool
		totalInvalid bool
		piMissing    bool
		items        = map[int]*itemProblems{}
		shipping     = map[string]bool{}
	)

	for _, fe := range fieldErrs {
		ns := fe.StructNamespace()
		if m := itemNamespace.FindStringSubmatch(ns); m != nil {
			idx, _ := strconv.Atoi(m[1])
			p := items[idx]
			if p == nil {
				p = &itemProblems{}
				items[idx] = p
			}
			if m[2] == "Quantity" {
				p.quantity = true
				if fe.Value() == 0 {
					p.missing = true
				}
			} else {
				p.missing = true
			}
			continue
		}
		switch {
		case ns == "CreateOrderRequest.Items":
			itemsInvalid = true
		case ns == "CreateOrderRequest.Total":
			totalInvalid = true
		case ns == "CreateOrderRequest.PaymentIntentID":
			piMissing = true
		case strings.HasPrefix(ns, "CreateOrderRequest.ShippingInfo."):
			shipping[fe.StructField()] = true
		}
	}

	var msgs []string
	if itemsInvalid {
		msgs = append(msgs, msgItemsRequired)
	}
	indexes := make([]int, 0, len(items))
	for idx := range items {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		p := items[idx]
		if p.missing {
			msgs = append(msgs, fmt.Sprintf("Item %d is missing required fields (product, quantity, size, color)", idx+1))
		}
		if p.quantity {
			msgs = append(msgs, fmt.Sprintf("Item %d quantity must be a positive number", idx+1))
		}
	}
	if totalInvalid {
		msgs = append(msgs, msgTotalRequired)
	}
	if len(shipping) > 0 {
		if req.ShippingInfo == (models.ShippingInfo{}) {
			msgs = append(msgs, msgShippingRequired)
		} else {
			for _, f := range shippingFieldOrder {
				if shipping[f] {
					msgs = append(msgs, shippingMessages[f])
				}
			}
		}
	}
	if piMissing {
		msgs = append(msgs, msgPaymentIntentID)
	}
	return msgs
}

// ValidatePaymentAmount checks a create-payment-intent amount in minor units.
func ValidatePaymentAmount(amount *float64, max int64) []string {
	if amount == nil {
		return []string{msgAmountRequired}
	}
	var msgs []string
	if err := validate.Var(*amount, "gt=0"); err != nil {
		msgs = append(msgs, msgAmountRequired)
	} else if *amount != float64(int64(*amount)) {
		msgs = append(msgs, msgAmountInteger)
	}
	if err := validate.Var(*amount, fmt.Sprintf("lte=%d", max)); err != nil {
		msgs = append(msgs, msgAmountTooLarge)
	}
	return msgs
}

// ValidateLogin checks the admin login body.
func ValidateLogin(req *models.LoginRequest) []string {
	if err := validate.Struct(req); err != nil {
		return []string{msgPasswordRequired}
	}
	return nil
}

// ValidateCartItem checks an add-to-cart request.
func ValidateCartItem(req *models.AddCartItemRequest) []string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var msgs []string
	var fieldsBad, qtyBad bool
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			if fe.StructField() == "Quantity" {
				qtyBad = true
			} else {
				fieldsBad = true
			}
		}
	}
	if fieldsBad {
		msgs = append(msgs, msgCartItemFields)
	}
	if qtyBad {
		msgs = append(msgs, msgCartQuantity)
	}
	return msgs
}
