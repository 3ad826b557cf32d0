package auth

import "testing"

func TestGenerateAndValidateToken(t *testing.T) {
	m := NewManager("test_secret_key_1234567890")
	claims := NewClaims("rest_123", "loc_456", []string{"print", "status"})

	token, err := m.GenerateToken(claims)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	validated, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if validated.RestaurantID != "rest_123" {
		t.Errorf("restaurant id = %q, want rest_123", validated.RestaurantID)
	}
	if validated.LocationID != "loc_456" {
		t.Errorf("location id = %q, want loc_456", validated.LocationID)
	}
	if !validated.HasPermission("print") || !validated.HasPermission("status") {
		t.Error("expected print and status permissions")
	}
	if validated.HasPermission("admin") {
		t.Error("did not expect admin permission")
	}
}

func TestValidateWithPermission(t *testing.T) {
	m := NewManager("test_secret_key_1234567890")
	claims := NewClaims("rest_123", "", []string{"print"})
	token, err := m.GenerateToken(claims)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := m.ValidateWithPermission(token, "print"); err != nil {
		t.Errorf("expected print permission to validate, got %v", err)
	}
	if _, err := m.ValidateWithPermission(token, "admin"); err == nil {
		t.Error("expected missing admin permission to fail validation")
	}
}

func TestValidateForRestaurant(t *testing.T) {
	m := NewManager("test_secret_key_1234567890")
	claims := NewClaims("rest_123", "", []string{"print"})
	token, err := m.GenerateToken(claims)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := m.ValidateForRestaurant(token, "rest_123"); err != nil {
		t.Errorf("expected matching restaurant id to validate, got %v", err)
	}
	if _, err := m.ValidateForRestaurant(token, "rest_999"); err == nil {
		t.Error("expected mismatched restaurant id to fail validation")
	}
}

func TestExtractBearerToken(t *testing.T) {
	token := "example.jwt.token"
	authHeader := "Bearer " + token

	extracted, err := ExtractBearerToken(authHeader)
	if err != nil {
		t.Fatalf("extract bearer token: %v", err)
	}
	if extracted != token {
		t.Errorf("extracted = %q, want %q", extracted, token)
	}

	if _, err := ExtractBearerToken(token); err == nil {
		t.Error("expected missing Bearer prefix to fail")
	}
}
