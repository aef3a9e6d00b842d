package people

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"passreg/pkg/passreg/auth"
	"passreg/pkg/passreg/models"
	"passreg/pkg/passreg/publicid"
	"passreg/pkg/passreg/qr"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func setupTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db, zap.NewNop().Sugar(), qr.NewGenerator("http://localhost:8080", t.TempDir()), t.TempDir())

	api := r.Group("/api")
	api.Use(auth.AuthMiddleware())
	handler.RegisterRoutes(api)

	return r
}

func createTestAdmin(t *testing.T, db *gorm.DB, email string) models.User {
	user := models.User{Email: &email, FirstName: "Test", LastName: "Admin", IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test admin: %v", err)
	}
	return user
}

func createTestGroup(t *testing.T, db *gorm.DB, name string, createdBy string) models.Group {
	group := models.Group{Name: name, CreatedByID: createdBy}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}
	return group
}

func createTestPerson(t *testing.T, db *gorm.DB, fullName string, groupID uint, createdBy string) models.Person {
	id, err := publicid.Issue(db)
	if err != nil {
		t.Fatalf("Failed to issue public ID: %v", err)
	}
	person := models.Person{
		PublicID:       id,
		FullName:       fullName,
		BirthDate:      time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC),
		PassportNumber: "4510 123456",
		Status:         true,
		ExpirationDate: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		GroupID:        &groupID,
		CreatedByID:    createdBy,
	}
	if err := db.Create(&person).Error; err != nil {
		t.Fatalf("Failed to create test person: %v", err)
	}
	return person
}

func getAuthHeader(user models.User) string {
	email := ""
	if user.Email != nil {
		email = *user.Email
	}
	token, _ := auth.GenerateToken(user.ID, email, user.IsMainAdmin)
	return "Bearer " + token
}

// multipartBody builds a multipart form from field values.
func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("Failed to write form field %s: %v", key, err)
		}
	}
	writer.Close()
	return buf, writer.FormDataContentType()
}

func auditCount(db *gorm.DB) int64 {
	var count int64
	db.Model(&models.ActivityLog{}).Count(&count)
	return count
}

func TestCreatePerson(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)
	user := createTestAdmin(t, db, "admin@example.com")
	group := createTestGroup(t, db, "Group A", user.ID)

	body, contentType := multipartBody(t, map[string]string{
		"full_name":       "Иванов Иван",
		"birth_date":      "1990-05-20",
		"passport_number": "4510 123456",
		"expiration_date": "2030-01-01",
		"group_id":        fmt.Sprintf("%d", group.ID),
	})

	req, _ := http.NewRequest("POST", "/api/people", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response PersonResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.FullName != "Иванов Иван" {
		t.Errorf("Expected full name to round-trip, got %s", response.FullName)
	}
	if len(response.PublicID) != publicid.Length {
		t.Errorf("Expected %d-char public ID, got %q", publicid.Length, response.PublicID)
	}
	if !response.Status {
		t.Error("Expected status to default to active")
	}
	if response.QRCodeURL == nil {
		t.Error("Expected QR code URL to be set")
	}
	if response.CreatedByID != user.ID {
		t.Errorf("Expected creator %s, got %s", user.ID, response.CreatedByID)
	}

	if n := auditCount(db); n != 1 {
		t.Errorf("Expected exactly one audit entry, got %d", n)
	}
}

func TestCreatePersonMissingRequiredField(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)
	user := createTestAdmin(t, db, "admin@example.com")
	group := createTestGroup(t, db, "Group A", user.ID)

	body, contentType := multipartBody(t, map[string]string{
		// no full_name
		"birth_date":      "1990-05-20",
		"passport_number": "4510 123456",
		"expiration_date": "2030-01-01",
		"group_id":        fmt.Sprintf("%d", group.ID),
	})

	req, _ := http.NewRequest("POST", "/api/people", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
	if n := auditCount(db); n != 0 {
		t.Errorf("Expected no audit entry for a rejected create, got %d", n)
	}
}

func TestCreatePersonInvalidGroup(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)
	user := createTestAdmin(t, db, "admin@example.com")

	body, contentType := multipartBody(t, map[string]string{
		"full_name":       "Иванов Иван",
		"birth_date":      "1990-05-20",
		"passport_number": "4510 123456",
		"expiration_date": "2030-01-01",
		"group_id":        "999",
	})

	req, _ := http.NewRequest("POST", "/api/people", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid group reference, got %d", resp.Code)
	}
}

func TestCreatePersonBadDate(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)
	user := createTestAdmin(t, db, "admin@example.com")
	group := createTestGroup(t, db, "Group A", user.ID)

	body, contentType := multipartBody(t, map[string]string{
		"full_name":       "Иванов Иван",
		"birth_date":      "20.05.1990",
		"passport_number": "4510 123456",
		"expiration_date": "2030-01-01",
		"group_id":        fmt.Sprintf("%d", group.ID),
	})

	req, _ := http.NewRequest("POST", "/api/people", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed date, got %d", resp.Code)
	}
}

func TestPublicIDsAreUniqueAcrossCreates(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)
	user := createTestAdmin(t, db, "admin@example.com")
	group := createTestGroup(t, db, "Group A", user.ID)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		body, contentType := multipartBody(t, map[string]string{
			"full_name":       fmt.Sprintf("Person %d", i),
			"birth_date":      "1990-05-20",
			"passport_number": fmt.Sprintf("%d", 1000+i),
			"expiration_date": "2030-01-01",
			"group_id":        fmt.Sprintf("%d", group.ID),
		})
		req, _ := http.NewRequest("POST", "/api/people", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", getAuthHeader(user))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
		}
		var response PersonResponse
		json.Unmarshal(resp.Body.Bytes(), &response)
		if seen[response.PublicID] {
			t.Fatalf("Public ID %s issued twice", response.PublicID)
		}
		seen[response.PublicID] = true
	}
}

func TestUpdatePersonPartial(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)
	user := createTestAdmin(t, db, "admin@example.com")
	group := createTestGroup(t, db, "Group A", user.ID)
	person := createTestPerson(t, db, "Original Name", group.ID, user.ID)

	body, contentType := multipartBody(t, map[string]string{
		"status": "false",
	})

	req, _ := http.NewRequest("PUT", fmt.Sprintf("/api/people/%d", person.ID), body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response PersonResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Status {
		t.Error("Expected status to be updated to false")
	}
	if response.FullName != "Original Name" {
		t.Errorf("Expected omitted fields to keep prior values, got %s", response.FullName)
	}
	if response.PassportNumber != person.PassportNumber {
		t.Errorf("Expected passport number to be retained, got %s", response.PassportNumber)
	}
	if response.PublicID != person.PublicID {
		t.Errorf("Expected public ID to be immutable, got %s", response.PublicID)
	}

	if n := auditCount(db); n != 1 {
		t.Errorf("Expected exactly one audit entry, got %d", n)
	}
}

func TestUpdatePersonNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)
	user := createTestAdmin(t, db, "admin@example.com")

	body, contentType := multipartBody(t, map[string]string{"full_name": "New"})

	req, _ := http.NewRequest("PUT", "/api/people/999", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestDeletePerson(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)
	user := createTestAdmin(t, db, "admin@example.com")
	group := createTestGroup(t, db, "Group A", user.ID)
	person := createTestPerson(t, db, "To Delete", group.ID, user.ID)

	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/people/%d", person.ID), nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var found models.Person
	if err := db.First(&found, person.ID).Error; err == nil {
		t.Error("Expected person to be deleted")
	}

	// Row stays unscoped so the public identifier can never be reused
	var unscoped models.Person
	if err := db.Unscoped().First(&unscoped, person.ID).Error; err != nil {
		t.Errorf("Expected deleted row to remain for identifier history: %v", err)
	}

	if n := auditCount(db); n != 1 {
		t.Errorf("Expected exactly one audit entry, got %d", n)
	}
}

func TestDeletePersonNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)
	user := createTestAdmin(t, db, "admin@example.com")

	req, _ := http.NewRequest("DELETE", "/api/people/999", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestListPeopleFilters(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)
	user := createTestAdmin(t, db, "admin@example.com")
	groupA := createTestGroup(t, db, "Group A", user.ID)
	groupB := createTestGroup(t, db, "Group B", user.ID)

	createTestPerson(t, db, "Alice Smith", groupA.ID, user.ID)
	createTestPerson(t, db, "Bob Jones", groupB.ID, user.ID)
	createTestPerson(t, db, "Charlie Smith", groupA.ID, user.ID)

	// Filter by group
	req, _ := http.NewRequest("GET", fmt.Sprintf("/api/people?group_id=%d", groupA.ID), nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var responses []PersonResponse
	json.Unmarshal(resp.Body.Bytes(), &responses)
	if len(responses) != 2 {
		t.Errorf("Expected 2 people in group A, got %d", len(responses))
	}

	// Case-insensitive name search
	req, _ = http.NewRequest("GET", "/api/people?q=smith", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	json.Unmarshal(resp.Body.Bytes(), &responses)
	if len(responses) != 2 {
		t.Errorf("Expected 2 matches for 'smith', got %d", len(responses))
	}

	// Search by passport number substring
	req, _ = http.NewRequest("GET", "/api/people?q=4510", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	json.Unmarshal(resp.Body.Bytes(), &responses)
	if len(responses) != 3 {
		t.Errorf("Expected 3 matches on passport number, got %d", len(responses))
	}
}

func TestListPeopleSearchFoldsCyrillic(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)
	user := createTestAdmin(t, db, "admin@example.com")
	group := createTestGroup(t, db, "Group A", user.ID)

	createTestPerson(t, db, "Иванов Иван", group.ID, user.ID)
	createTestPerson(t, db, "Петров Пётр", group.ID, user.ID)

	req, _ := http.NewRequest("GET", "/api/people?q=%D0%B8%D0%B2%D0%B0%D0%BD%D0%BE%D0%B2", nil) // "иванов"
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var responses []PersonResponse
	json.Unmarshal(resp.Body.Bytes(), &responses)
	if len(responses) != 1 {
		t.Fatalf("Expected 1 match for lowercase Cyrillic search, got %d", len(responses))
	}
	if responses[0].FullName != "Иванов Иван" {
		t.Errorf("Expected Иванов Иван, got %s", responses[0].FullName)
	}
}

func TestPersonResponseTimestampsUTC(t *testing.T) {
	offset := time.FixedZone("UTC+3", 3*60*60)
	person := models.Person{
		PublicID:       "aaaaaaaaaaaaaaaa",
		FullName:       "Zone Check",
		BirthDate:      time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		PassportNumber: "1",
		Status:         true,
		ExpirationDate: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	person.CreatedAt = time.Date(2026, 3, 1, 2, 30, 0, 0, offset)
	person.UpdatedAt = person.CreatedAt

	resp := PersonToResponse(person, time.Now())
	if resp.CreatedAt != "2026-02-28T23:30:00Z" {
		t.Errorf("Expected created_at in UTC, got %s", resp.CreatedAt)
	}
	if resp.UpdatedAt != "2026-02-28T23:30:00Z" {
		t.Errorf("Expected updated_at in UTC, got %s", resp.UpdatedAt)
	}
}

func TestListPeopleExpiryHints(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)
	user := createTestAdmin(t, db, "admin@example.com")
	group := createTestGroup(t, db, "Group A", user.ID)

	soon := createTestPerson(t, db, "Expiring Soon", group.ID, user.ID)
	db.Model(&soon).Update("expiration_date", time.Now().AddDate(0, 0, 10))

	expired := createTestPerson(t, db, "Expired", group.ID, user.ID)
	db.Model(&expired).Update("expiration_date", time.Now().AddDate(0, 0, -1))

	req, _ := http.NewRequest("GET", "/api/people", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var responses []PersonResponse
	json.Unmarshal(resp.Body.Bytes(), &responses)

	byName := make(map[string]PersonResponse)
	for _, r := range responses {
		byName[r.FullName] = r
	}

	if !byName["Expiring Soon"].IsExpiringSoon {
		t.Error("Expected record 10 days from expiry to be expiring soon")
	}
	if byName["Expiring Soon"].IsExpired {
		t.Error("Expected record 10 days from expiry to not be expired")
	}
	if !byName["Expired"].IsExpired {
		t.Error("Expected past-date record to be expired")
	}
	if byName["Expired"].IsExpiringSoon {
		t.Error("Expected expired record to not be expiring soon")
	}
}

func TestPeopleRequireAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)

	req, _ := http.NewRequest("GET", "/api/people", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}
