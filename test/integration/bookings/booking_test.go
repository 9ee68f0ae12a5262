package integrationtests

import (
	"fmt"
	"net/http"
	"testing"

	"stayledger/pkg/model"
	"stayledger/test/integration/testutil"
)

type bookingEnvelope struct {
	Data model.Booking `json:"data"`
}

type bookingPage struct {
	Data       []model.Booking `json:"data"`
	TotalCount int64           `json:"total_count"`
}

type propertyEnvelope struct {
	Data model.Property `json:"data"`
}

func createProperty(t *testing.T, client *testutil.Client, owner string, pricePerDay uint64) model.Property {
	t.Helper()
	resp := client.POSTAs(t, "/api/v1/properties", testutil.ValidProperty(pricePerDay), owner)
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var created propertyEnvelope
	if err := resp.UnmarshalJSON(&created); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return created.Data
}

func book(t *testing.T, client *testutil.Client, renter string, propertyID, checkIn, checkout, paid uint64) *testutil.Response {
	t.Helper()
	return client.POSTAs(t, "/api/v1/bookings", testutil.ValidBooking(propertyID, checkIn, checkout, paid), renter)
}

// The suite assumes the server runs the in-process payment vault, which
// opens accounts with a starting grant large enough for every scenario.
func TestBookingSettlementFlow(t *testing.T) {
	env := testutil.NewTestEnv()
	client := env.Setup(t)

	owner := testutil.UniqueAccount("owner")
	renterA := testutil.UniqueAccount("renter")
	renterB := testutil.UniqueAccount("renter")
	property := createProperty(t, client, owner, 10)

	resp := book(t, client, renterA, property.ID, 5, 8, 30)
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var first bookingEnvelope
	if err := resp.UnmarshalJSON(&first); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if first.Data.PropertyID != property.ID {
		t.Errorf("expected property id %d, got %d", property.ID, first.Data.PropertyID)
	}
	if first.Data.Price != 30 {
		t.Errorf("expected settled price 30, got %d", first.Data.Price)
	}
	if first.Data.Reference == "" {
		t.Fatal("expected a confirmation reference")
	}

	// Overlapping range on the same property.
	resp = book(t, client, renterB, property.ID, 6, 9, 30)
	testutil.AssertStatusCode(t, resp, http.StatusConflict)
	testutil.AssertErrorCode(t, resp, "DATE_CONFLICT")

	// Adjacent range settles; checkout day is exclusive.
	resp = book(t, client, renterB, property.ID, 8, 10, 20)
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var second bookingEnvelope
	if err := resp.UnmarshalJSON(&second); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if second.Data.ID <= first.Data.ID {
		t.Errorf("expected booking ids to increase, got %d then %d", first.Data.ID, second.Data.ID)
	}

	resp = client.GET(t, fmt.Sprintf("/api/v1/bookings/id/%d", first.Data.ID))
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var fetched bookingEnvelope
	if err := resp.UnmarshalJSON(&fetched); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if fetched.Data.Renter.String() != renterA || fetched.Data.CheckIn != 5 || fetched.Data.Checkout != 8 {
		t.Errorf("fetched booking does not match settlement: %+v", fetched.Data)
	}

	resp = client.GET(t, "/api/v1/bookings/reference/"+first.Data.Reference)
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var byRef bookingEnvelope
	if err := resp.UnmarshalJSON(&byRef); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if byRef.Data.ID != first.Data.ID {
		t.Errorf("reference resolved to booking %d, want %d", byRef.Data.ID, first.Data.ID)
	}

	resp = client.GET(t, fmt.Sprintf("/api/v1/bookings/property/%d?limit=10&offset=0", property.ID))
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var byProperty bookingPage
	if err := resp.UnmarshalJSON(&byProperty); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if byProperty.TotalCount != 2 {
		t.Errorf("expected 2 bookings on the property, got %d", byProperty.TotalCount)
	}

	resp = client.GET(t, fmt.Sprintf("/api/v1/bookings/renter/%s?limit=10&offset=0", renterA))
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var byRenter bookingPage
	if err := resp.UnmarshalJSON(&byRenter); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if byRenter.TotalCount != 1 || len(byRenter.Data) != 1 {
		t.Fatalf("expected exactly 1 booking for %s, got %d", renterA, byRenter.TotalCount)
	}
}

func TestBookingExactPayment(t *testing.T) {
	env := testutil.NewTestEnv()
	client := env.Setup(t)

	owner := testutil.UniqueAccount("owner")
	renter := testutil.UniqueAccount("renter")
	property := createProperty(t, client, owner, 10)

	resp := book(t, client, renter, property.ID, 5, 8, 29)
	testutil.AssertStatusCode(t, resp, http.StatusPaymentRequired)
	testutil.AssertErrorCode(t, resp, "INSUFFICIENT_PAYMENT")

	resp = book(t, client, renter, property.ID, 5, 8, 31)
	testutil.AssertStatusCode(t, resp, http.StatusPaymentRequired)
	testutil.AssertErrorCode(t, resp, "INSUFFICIENT_PAYMENT")

	// The rejected attempts reserved nothing.
	resp = client.GET(t, fmt.Sprintf("/api/v1/properties/id/%d/availability?check_in=5&check_out=8", property.ID))
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	testutil.AssertContains(t, resp, `"available":true`)

	resp = book(t, client, renter, property.ID, 5, 8, 30)
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
}

func TestBookingRejections(t *testing.T) {
	env := testutil.NewTestEnv()
	client := env.Setup(t)

	owner := testutil.UniqueAccount("owner")
	renter := testutil.UniqueAccount("renter")
	property := createProperty(t, client, owner, 10)

	resp := book(t, client, renter, property.ID, 5, 5, 0)
	testutil.AssertStatusCode(t, resp, http.StatusUnprocessableEntity)
	testutil.AssertErrorCode(t, resp, "INVALID_RANGE")

	resp = book(t, client, renter, property.ID, 8, 5, 30)
	testutil.AssertStatusCode(t, resp, http.StatusUnprocessableEntity)
	testutil.AssertErrorCode(t, resp, "INVALID_RANGE")

	resp = book(t, client, renter, 18446744073709551614, 5, 8, 30)
	testutil.AssertStatusCode(t, resp, http.StatusNotFound)
	testutil.AssertErrorCode(t, resp, "NOT_FOUND")

	resp = client.GET(t, "/api/v1/bookings/reference/not-a-sealed-code")
	testutil.AssertStatusCode(t, resp, http.StatusNotFound)
	testutil.AssertErrorCode(t, resp, "NOT_FOUND")

	// Deactivation closes the property to new bookings.
	deactivatePath := fmt.Sprintf("/api/v1/properties/id/%d/deactivate", property.ID)
	resp = client.POSTAs(t, deactivatePath, nil, owner)
	testutil.AssertStatusCode(t, resp, http.StatusNoContent)

	resp = book(t, client, renter, property.ID, 5, 8, 30)
	testutil.AssertStatusCode(t, resp, http.StatusConflict)
	testutil.AssertErrorCode(t, resp, "PROPERTY_INACTIVE")
}
