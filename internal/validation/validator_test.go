package validation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-product-api/internal/failure"
)

type registerReq struct {
	Name                 string `json:"name" validate:"filled,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=6,confirmed"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type productReq struct {
	Name  *string  `json:"name" validate:"omitempty,filled,max=5"`
	Price *float64 `json:"price" validate:"required,gte=0"`
	Stock *int     `json:"stock" validate:"omitempty,gte=0"`
}

func newCtx(t *testing.T, body string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, "/x", nil)
	} else {
		req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c
}

func fieldsOf(t *testing.T, err error) failure.Fields {
	t.Helper()
	var sig *failure.Signal
	if !errors.As(err, &sig) || sig.Kind != failure.KindValidation {
		t.Fatalf("expected validation signal, got %v", err)
	}
	return sig.Fields
}

func TestBind_Valid(t *testing.T) {
	v := New()
	var req registerReq
	c := newCtx(t, `{"name":"Ann","email":"ann@example.com","password":"secret1","password_confirmation":"secret1"}`)
	if err := v.Bind(c, &req); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if req.Email != "ann@example.com" {
		t.Fatalf("decoded request unexpected: %+v", req)
	}
}

func TestBind_EmptyBody_ReportsRequiredFields(t *testing.T) {
	v := New()
	var req registerReq
	fields := fieldsOf(t, v.Bind(newCtx(t, ""), &req))

	want := failure.Fields{
		"name":     {"The name field is required."},
		"email":    {"The email field is required."},
		"password": {"The password field is required."},
	}
	if !reflect.DeepEqual(fields, want) {
		t.Fatalf("fields = %#v\nwant %#v", fields, want)
	}
}

func TestBind_RuleMessages(t *testing.T) {
	v := New()
	var req registerReq
	body := `{"name":"   ","email":"nope","password":"abc","password_confirmation":"abc"}`
	fields := fieldsOf(t, v.Bind(newCtx(t, body), &req))

	if got := fields["name"]; len(got) != 1 || got[0] != "The name field is required." {
		t.Fatalf("name: %v", got)
	}
	if got := fields["email"]; len(got) != 1 || got[0] != "The email field must be a valid email address." {
		t.Fatalf("email: %v", got)
	}
	if got := fields["password"]; len(got) != 1 || got[0] != "The password field must be at least 6 characters." {
		t.Fatalf("password: %v", got)
	}
}

func TestBind_ConfirmedMismatch(t *testing.T) {
	v := New()
	var req registerReq
	body := `{"name":"Ann","email":"a@b.co","password":"secret1","password_confirmation":"secret2"}`
	fields := fieldsOf(t, v.Bind(newCtx(t, body), &req))
	if got := fields["password"]; len(got) != 1 || got[0] != "The password field confirmation does not match." {
		t.Fatalf("password: %v", got)
	}
	if _, ok := fields["password_confirmation"]; ok {
		t.Fatalf("confirmation errors belong to the confirmed field")
	}
}

func TestBind_MalformedJSON(t *testing.T) {
	v := New()
	var req registerReq
	fields := fieldsOf(t, v.Bind(newCtx(t, `{"name":`), &req))
	if _, ok := fields[BodyField]; !ok || len(fields) != 1 {
		t.Fatalf("expected only a body error, got %v", fields)
	}
}

func TestBind_BodyOverLimit(t *testing.T) {
	v := New()
	var req registerReq
	c := newCtx(t, `{"name":"Ann","email":"ann@example.com","password":"secret1","password_confirmation":"secret1"}`)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 16)

	var sig *failure.Signal
	err := v.Bind(c, &req)
	if !errors.As(err, &sig) || sig.Kind != failure.KindTooLarge {
		t.Fatalf("expected too-large signal, got %v", err)
	}
	if sig.Message != "The request body must not be larger than 16 bytes." {
		t.Fatalf("message = %q", sig.Message)
	}
}

func TestBind_PasswordByteLimit(t *testing.T) {
	type pwReq struct {
		Password string `json:"password" validate:"maxbytes=8"`
	}
	v := New()
	for pw, ok := range map[string]bool{"12345678": true, "123456789": false, "éééé": true, "ééééé": false} {
		var req pwReq
		err := v.Bind(newCtx(t, `{"password":"`+pw+`"}`), &req)
		if ok {
			if err != nil {
				t.Fatalf("%q: %v", pw, err)
			}
			continue
		}
		fields := fieldsOf(t, err)
		if got := fields["password"]; len(got) != 1 || got[0] != "The password field must not be greater than 8 bytes." {
			t.Fatalf("%q: %v", pw, got)
		}
	}
}

func TestBind_TypeMismatch(t *testing.T) {
	v := New()
	var req productReq
	fields := fieldsOf(t, v.Bind(newCtx(t, `{"price":"cheap","stock":1}`), &req))
	if got := fields["price"]; len(got) != 1 || got[0] != "The price field must be a number." {
		t.Fatalf("price: %v", got)
	}

	var req2 productReq
	fields = fieldsOf(t, v.Bind(newCtx(t, `{"price":1,"stock":1.5}`), &req2))
	if got := fields["stock"]; len(got) != 1 || got[0] != "The stock field must be an integer." {
		t.Fatalf("stock: %v", got)
	}
}

func TestBind_PointerFields(t *testing.T) {
	v := New()

	var ok productReq
	if err := v.Bind(newCtx(t, `{"price":0}`), &ok); err != nil {
		t.Fatalf("zero price with no optional fields should pass: %v", err)
	}

	var bad productReq
	fields := fieldsOf(t, v.Bind(newCtx(t, `{"name":"toolong","price":-1,"stock":-2}`), &bad))
	want := failure.Fields{
		"name":  {"The name field must not be greater than 5 characters."},
		"price": {"The price field must be at least 0."},
		"stock": {"The stock field must be at least 0."},
	}
	if !reflect.DeepEqual(fields, want) {
		t.Fatalf("fields = %#v\nwant %#v", fields, want)
	}
}

func TestChecks_RunOnlyForValidFields(t *testing.T) {
	v := New()
	req := registerReq{Name: "Ann", Email: "bad", Password: "secret1", PasswordConfirmation: "secret1"}

	called := false
	err := v.Validate(context.Background(), &req,
		Unique("email", func(context.Context) (bool, error) { called = true; return true, nil }),
	)
	fields := fieldsOf(t, err)
	if called {
		t.Fatalf("check must not run for a field that failed its tag rules")
	}
	if len(fields["email"]) != 1 {
		t.Fatalf("expected only the tag error on email, got %v", fields["email"])
	}
}

func TestUnique_AndCurrentPassword(t *testing.T) {
	v := New()
	req := registerReq{Name: "Ann", Email: "ann@example.com", Password: "secret1", PasswordConfirmation: "secret1"}

	err := v.Validate(context.Background(), &req,
		Unique("email", func(context.Context) (bool, error) { return true, nil }),
		CurrentPassword("current_password", func(context.Context) (bool, error) { return false, nil }),
	)
	fields := fieldsOf(t, err)
	if got := fields["email"]; len(got) != 1 || got[0] != "The email has already been taken." {
		t.Fatalf("email: %v", got)
	}
	if got := fields["current_password"]; len(got) != 1 || got[0] != MsgCurrentPasswordIncorrect {
		t.Fatalf("current_password: %v", got)
	}

	if err := v.Validate(context.Background(), &req,
		Unique("email", func(context.Context) (bool, error) { return false, nil }),
		CurrentPassword("current_password", func(context.Context) (bool, error) { return true, nil }),
	); err != nil {
		t.Fatalf("passing checks should not fail: %v", err)
	}
}

func TestCheckError_IsUnhandled(t *testing.T) {
	v := New()
	req := registerReq{Name: "Ann", Email: "ann@example.com", Password: "secret1", PasswordConfirmation: "secret1"}
	boom := errors.New("db down")
	err := v.Validate(context.Background(), &req,
		Unique("email", func(context.Context) (bool, error) { return false, boom }),
	)
	if !failure.IsKind(err, failure.KindUnhandled) || !errors.Is(err, boom) {
		t.Fatalf("expected unhandled failure wrapping boom, got %v", err)
	}
}

func TestLabel(t *testing.T) {
	cases := map[string]string{
		"new_password":   "new password",
		"email":          "email",
		"address.line_1": "line 1",
	}
	for in, want := range cases {
		if got := label(in); got != want {
			t.Fatalf("label(%q) = %q; want %q", in, got, want)
		}
	}
}
