package testutil

import (
	"database/sql"
	"testing"

	"atelier/internal/auth"
	"atelier/internal/repository"
)

// TestSecret подписывает токены в тестах
const TestSecret = "test-secret"

// OpenInMemoryDB создаёт мигрированную in-memory SQLite базу и закрывает её по окончании теста
func OpenInMemoryDB(t testing.TB) *sql.DB {
	t.Helper()
	d, err := repository.Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// CustomerBearer возвращает заголовок Authorization для покупателя amina@example.com
func CustomerBearer(t testing.TB) string {
	return CustomerBearerFor(t, "amina@example.com")
}

// CustomerBearerFor возвращает заголовок Authorization для покупателя с указанным email
func CustomerBearerFor(t testing.TB, email string) string {
	return bearer(t, auth.Principal{Name: "customer", Kind: auth.KindCustomer, Email: email})
}

// StaffBearer возвращает заголовок Authorization для сотрудника
func StaffBearer(t testing.TB) string {
	return bearer(t, auth.Principal{Name: "tailor-desk", Kind: auth.KindStaff})
}

func bearer(t testing.TB, p auth.Principal) string {
	t.Helper()
	tok, err := auth.IssueTokenFor(TestSecret, p)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + tok
}
