package cart

import (
	"net/http"

	"storefront-api/internal/pkg/apperror"
)

var (
	ErrNoIdentity = apperror.New(
		apperror.CodeUnauthorized,
		"No user identity for cart operation",
		http.StatusUnauthorized,
	)

	ErrVariantRequired = apperror.New(
		apperror.CodeInvalidInput,
		"This product requires a variant selection",
		http.StatusBadRequest,
	)

	ErrOutOfStock = apperror.New(
		apperror.CodeUnprocessable,
		"Product is out of stock",
		http.StatusUnprocessableEntity,
	)

	ErrInvalidQuantity = apperror.New(
		apperror.CodeInvalidInput,
		"Quantity must be at least 1",
		http.StatusBadRequest,
	)

	ErrInvalidLineID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid cart item id",
		http.StatusBadRequest,
	)

	ErrCartNotFound = apperror.New(
		apperror.CodeNotFound,
		"Cart not found",
		http.StatusNotFound,
	)

	ErrLineNotFound = apperror.New(
		apperror.CodeNotFound,
		"Cart item no longer exists",
		http.StatusNotFound,
	)

	ErrDiscountCodeRequired = apperror.New(
		apperror.CodeInvalidInput,
		"Discount code is required",
		http.StatusBadRequest,
	)

	ErrInvalidDiscount = apperror.New(
		apperror.CodeUnprocessable,
		"Discount code is invalid or not applicable",
		http.StatusUnprocessableEntity,
	)

	ErrUpstreamUnavailable = apperror.New(
		apperror.CodeUpstreamUnavailable,
		"Cart service is unreachable",
		http.StatusBadGateway,
	)

	ErrUpstreamTimeout = apperror.New(
		apperror.CodeUpstreamTimeout,
		"Cart service timed out",
		http.StatusGatewayTimeout,
	)
)
