package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/kataras/iris/v12"
	"golang.org/x/crypto/bcrypt"

	"github.com/rgglenn150/motoclub-connect-backend/models"
	"github.com/rgglenn150/motoclub-connect-backend/storage"
	"github.com/rgglenn150/motoclub-connect-backend/utils"
)

func registerTestUser(t *testing.T, app *iris.Application, email, password string) {
	t.Helper()
	code, body := doJSON(t, app, http.MethodPost, "/api/user/register", 0, iris.Map{
		"firstName": "Glenn",
		"lastName":  "Rider",
		"email":     email,
		"password":  password,
	})
	if code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d (%v)", code, body)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	app := buildTestApp(t)
	registerTestUser(t, app, "rider@example.com", "originalpass1")

	var user models.User
	if err := storage.DB.First(&user, "email = ?", "rider@example.com").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}

	resetToken, tokenErr := utils.CreateForgotPasswordToken(user.ID, user.Email)
	if tokenErr != nil {
		t.Fatalf("sign reset token: %v", tokenErr)
	}

	raw, _ := json.Marshal(iris.Map{"password": "freshpassword2"})
	req := httptest.NewRequest(http.MethodPost, "/api/user/resetpassword", bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+resetToken)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}

	// The stored hash now matches the new password only
	if err := storage.DB.First(&user, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("freshpassword2")); err != nil {
		t.Fatalf("new password does not match stored hash: %v", err)
	}

	code, _ := doJSON(t, app, http.MethodPost, "/api/user/login", 0, iris.Map{
		"email": "rider@example.com", "password": "originalpass1",
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with old password, got %d", code)
	}

	code, _ = doJSON(t, app, http.MethodPost, "/api/user/login", 0, iris.Map{
		"email": "rider@example.com", "password": "freshpassword2",
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200 with new password, got %d", code)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	app := buildTestApp(t)

	code, _ := doJSON(t, app, http.MethodPost, "/api/user/forgotpassword", 0, iris.Map{
		"email": "nobody@example.com",
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email, got %d", code)
	}
}

func TestForgotPasswordSocialAccount(t *testing.T) {
	app := buildTestApp(t)
	social := models.User{Email: "social@example.com", FirstName: "Social", SocialLogin: true, SocialProvider: "Google"}
	if err := storage.DB.Create(&social).Error; err != nil {
		t.Fatalf("create social user: %v", err)
	}

	code, _ := doJSON(t, app, http.MethodPost, "/api/user/forgotpassword", 0, iris.Map{
		"email": "social@example.com",
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for social account, got %d", code)
	}
}

func TestForgotPasswordWithoutSMTP(t *testing.T) {
	os.Unsetenv("SMTP_HOST")
	app := buildTestApp(t)
	registerTestUser(t, app, "nomail@example.com", "originalpass1")

	code, body := doJSON(t, app, http.MethodPost, "/api/user/forgotpassword", 0, iris.Map{
		"email": "nomail@example.com",
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", code, body)
	}
	if body["emailSent"] != false {
		t.Fatalf("expected emailSent=false without a relay, got %v", body["emailSent"])
	}
}

func TestGoogleLoginWithoutEmail(t *testing.T) {
	app := buildTestApp(t)

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer provider.Close()

	previous := googleUserInfoEndpoint
	googleUserInfoEndpoint = provider.URL
	defer func() { googleUserInfoEndpoint = previous }()

	code, _ := doJSON(t, app, http.MethodPost, "/api/user/google", 0, iris.Map{
		"accessToken": "opaque",
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when provider returns no email, got %d", code)
	}
}
