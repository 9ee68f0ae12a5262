package http

import (
	"net/http"
	"strconv"

	"stayledger/pkg/config"
	apperrors "stayledger/pkg/errors"
	"stayledger/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// HeaderAccountID carries the caller's account identity. There is no
// authentication layer; the header is trusted as-is and gates only
// owner-vs-renter semantics.
const HeaderAccountID = "X-Account-ID"

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = int64(v)
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// ExtractAccountID reads the caller identity header.
func ExtractAccountID(r *http.Request) (model.AccountID, error) {
	account := r.Header.Get(HeaderAccountID)
	if account == "" {
		return "", apperrors.InvalidInput("missing " + HeaderAccountID + " header")
	}
	return model.AccountID(account), nil
}

// ExtractUintParam parses a numeric path parameter such as :id.
func ExtractUintParam(ps httprouter.Params, name string) (uint64, error) {
	raw := ps.ByName(name)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput("invalid " + name + " parameter: " + raw)
	}
	return v, nil
}

// ExtractUintQuery parses an optional numeric query parameter, returning
// the fallback when absent.
func ExtractUintQuery(r *http.Request, name string, fallback uint64) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput("invalid " + name + " parameter: " + raw)
	}
	return v, nil
}
