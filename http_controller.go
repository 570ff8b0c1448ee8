package multilogin

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"

	"github.com/multilogin/go-multilogin/middleware/jwtware"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Patch(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController exposes the login, profile, and admin directory routes.
type HTTPController struct {
	Debug  bool
	Logger Logger
	Repo   RepositoryManager
	Auther *Auther
	Tokens TokenValidator
	Relay  *ForwardingRelay
	Hasher CredentialHasher

	register *RegisterUserHandler
	change   *ChangePasswordHandler
	reset    *ResetPasswordHandler
}

// HTTPControllerOption configures the controller
type HTTPControllerOption func(*HTTPController) *HTTPController

func WithControllerLogger(logger Logger) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithRepositoryManager(repo RepositoryManager) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Repo = repo
		return c
	}
}

func WithAuther(auther *Auther) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Auther = auther
		return c
	}
}

func WithTokenValidator(tokens TokenValidator) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Tokens = tokens
		return c
	}
}

func WithRelay(relay *ForwardingRelay) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Relay = relay
		return c
	}
}

func WithHasher(hasher CredentialHasher) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Hasher = hasher
		return c
	}
}

func WithDebug(debug bool) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Debug = debug
		return c
	}
}

// NewHTTPController creates the controller and its command handlers.
func NewHTTPController(opts ...HTTPControllerOption) *HTTPController {
	c := &HTTPController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in multilogin controller...")
	}

	if c.Auther == nil {
		panic("Missing Auther in multilogin controller...")
	}

	if c.Tokens == nil {
		c.Tokens = c.Auther.TokenService()
	}

	if c.Hasher == nil {
		panic("Missing CredentialHasher in multilogin controller...")
	}

	c.register = NewRegisterUserHandler(c.Repo, c.Hasher).WithLogger(c.Logger)
	c.change = NewChangePasswordHandler(c.Repo, c.Hasher).WithLogger(c.Logger)
	c.reset = NewResetPasswordHandler(c.Repo, c.Hasher).WithLogger(c.Logger)

	return c
}

// claimsValidator bridges the root TokenValidator into the middleware's
// mirrored interface.
type claimsValidator struct {
	tokens TokenValidator
}

func (v claimsValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Protected builds the bearer-token middleware for self-service routes.
func (a *HTTPController) Protected() router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		TokenValidator: claimsValidator{tokens: a.Tokens},
		ErrorHandler:   a.authErrorHandler,
	})
}

// AdminOnly builds the middleware for admin-scoped routes.
func (a *HTTPController) AdminOnly() router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		TokenValidator: claimsValidator{tokens: a.Tokens},
		ErrorHandler:   a.authErrorHandler,
		RequiredRole:   string(RoleAdmin),
	})
}

// RegisterRoutes wires the HTTP surface.
func (a *HTTPController) RegisterRoutes(r RouteRegistrar) {
	protected := a.Protected()
	admin := a.AdminOnly()

	r.Post("/auth", a.Login)
	r.Post("/auth/external", a.LoginExternal)

	r.Get("/profile", a.ProfileShow, protected)
	r.Patch("/profile", a.ProfilePatch, protected)
	r.Patch("/profile/password", a.PasswordChange, protected)

	r.Get("/users", a.UserList, admin)
	r.Post("/users", a.UserCreate, admin)
	r.Patch("/users/:id/password", a.UserResetPassword, admin)
	r.Get("/users/:id", a.UserShow, admin)
	r.Patch("/users/:id", a.UserPatch, admin)
	r.Delete("/users/:id", a.UserDelete, admin)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// Login exchanges an email and password for a session token.
func (a *HTTPController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		// Malformed login input is still a credential failure to callers.
		return a.handleError(ctx, sentinelError(ErrInvalidCredentials))
	}

	if a.Debug {
		fmt.Println("======= LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("====================")
	}

	token, identity, err := a.Auther.LoginWithPassword(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"token":   token,
		"profile": profileFromIdentity(identity),
	})
}

// ExternalLoginRequest payload
type ExternalLoginRequest struct {
	Assertion string `form:"assertion" json:"assertion"`
}

// Validate will run validation rules
func (r ExternalLoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Assertion, validation.Required),
	)
}

// LoginExternal exchanges a verified identity assertion for a session token.
func (a *HTTPController) LoginExternal(ctx router.Context) error {
	payload := new(ExternalLoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.handleError(ctx, sentinelError(ErrAssertionRejected))
	}

	token, identity, err := a.Auther.LoginWithAssertion(ctx.Context(), payload.Assertion)
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"token":   token,
		"profile": profileFromIdentity(identity),
	})
}

// ProfileShow returns the caller's own directory record.
func (a *HTTPController) ProfileShow(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"profile": user,
	})
}

// ProfilePatchRequest carries the optional profile fields
type ProfilePatchRequest struct {
	Name  string `form:"name" json:"name"`
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ProfilePatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, 50)),
		validation.Field(&r.Email, validation.Length(3, 150), is.Email),
	)
}

// ProfilePatch applies a partial update to the caller's record.
func (a *HTTPController) ProfilePatch(ctx router.Context) error {
	payload := new(ProfilePatchRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err)
	}

	user, err := a.currentUser(ctx)
	if err != nil {
		return a.handleError(ctx, err)
	}

	updated, err := a.applyPatch(ctx, user, payload.Name, payload.Email)
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"profile": updated,
	})
}

// PasswordChangeRequest payload
type PasswordChangeRequest struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r PasswordChangeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required),
	)
}

// PasswordChange rotates the caller's password.
func (a *HTTPController) PasswordChange(ctx router.Context) error {
	payload := new(PasswordChangeRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err)
	}

	userID, err := a.currentUserID(ctx)
	if err != nil {
		return a.handleError(ctx, err)
	}

	err = a.change.Execute(ctx.Context(), ChangePasswordMessage{
		UserID:          userID,
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
	})
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.Status(router.StatusNoContent).SendString("")
}

// UserList returns every directory principal.
func (a *HTTPController) UserList(ctx router.Context) error {
	records, err := a.Repo.Users().List(ctx.Context())
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"users": records,
	})
}

// UserCreateRequest payload
type UserCreateRequest struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Role     string `form:"role" json:"role"`
	Provider string `form:"provider" json:"provider"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r UserCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 150), is.Email),
		validation.Field(&r.Role, validation.In("", string(RoleNormal), string(RoleAdmin))),
		validation.Field(&r.Provider, validation.Length(0, 50)),
		validation.Field(&r.Password, validation.Length(0, 100)),
	)
}

// UserCreate registers a principal on behalf of an admin.
func (a *HTTPController) UserCreate(ctx router.Context) error {
	payload := new(UserCreateRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= USER CREATE ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("==========================")
	}

	var created *User
	err := a.register.Execute(ctx.Context(), RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Role:     payload.Role,
		Provider: payload.Provider,
		Password: payload.Password,
		OnResponse: func(user *User) {
			created = user
		},
	})
	if err != nil {
		return a.handleError(ctx, err)
	}

	if done, err := a.forward(ctx, payload); done {
		return err
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"profile": created,
	})
}

// UserShow returns a principal by id.
func (a *HTTPController) UserShow(ctx router.Context) error {
	id, err := a.pathID(ctx)
	if err != nil {
		return a.handleError(ctx, err)
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), id)
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"profile": user,
	})
}

// UserPatch applies a partial update to any principal.
func (a *HTTPController) UserPatch(ctx router.Context) error {
	payload := new(ProfilePatchRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err)
	}

	id, err := a.pathID(ctx)
	if err != nil {
		return a.handleError(ctx, err)
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), id)
	if err != nil {
		return a.handleError(ctx, err)
	}

	updated, err := a.applyPatch(ctx, user, payload.Name, payload.Email)
	if err != nil {
		return a.handleError(ctx, err)
	}

	if done, err := a.forward(ctx, payload); done {
		return err
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"profile": updated,
	})
}

// UserDelete removes a principal.
func (a *HTTPController) UserDelete(ctx router.Context) error {
	id, err := a.pathID(ctx)
	if err != nil {
		return a.handleError(ctx, err)
	}

	if err := a.Repo.Users().Delete(ctx.Context(), id); err != nil {
		return a.handleError(ctx, err)
	}

	if done, err := a.forward(ctx, nil); done {
		return err
	}

	return ctx.Status(router.StatusNoContent).SendString("")
}

// UserResetPassword generates a fresh password for a principal and returns
// the plaintext once.
func (a *HTTPController) UserResetPassword(ctx router.Context) error {
	id, err := a.pathID(ctx)
	if err != nil {
		return a.handleError(ctx, err)
	}

	var plaintext string
	err = a.reset.Execute(ctx.Context(), ResetPasswordMessage{
		UserID: id,
		OnResponse: func(p string) {
			plaintext = p
		},
	})
	if err != nil {
		return a.handleError(ctx, err)
	}

	if done, err := a.forward(ctx, nil); done {
		return err
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"password": plaintext,
	})
}

// forward relays the committed mutation downstream when a target applies.
// It reports whether it already wrote the response. Relay success passes the
// downstream body through; relay failure surfaces 502 with the local write
// kept either way.
func (a *HTTPController) forward(ctx router.Context, payload any) (bool, error) {
	if a.Relay == nil {
		return false, nil
	}

	req := &RelayRequest{
		Method:        ctx.Method(),
		Path:          ctx.Path(),
		Authorization: ctx.GetString(router.HeaderAuthorization, ""),
		Target:        ctx.Query("forward_to", ""),
	}

	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return true, a.handleError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to serialize relay body"))
		}
		req.Body = body
	}

	if !a.Relay.ShouldForward(req) {
		return false, nil
	}

	result, err := a.Relay.Forward(req)
	if err != nil {
		return true, a.handleError(ctx, err)
	}

	return true, ctx.Status(result.StatusCode).SendString(string(result.Body))
}

func (a *HTTPController) applyPatch(ctx router.Context, user *User, name, email string) (*User, error) {
	if name != "" {
		user.Name = name
	}

	if email != "" && email != user.Email {
		dup, err := a.Repo.Users().IsDuplicateEmail(ctx.Context(), user.ID, email, user.Provider)
		if err != nil {
			return nil, err
		}
		if dup {
			return nil, sentinelError(ErrDuplicateIdentity)
		}
		user.Email = email
	}

	return a.Repo.Users().Replace(ctx.Context(), user)
}

func (a *HTTPController) currentUserID(ctx router.Context) (uuid.UUID, error) {
	claims, ok := GetRouterClaims(ctx, "")
	if !ok {
		return uuid.Nil, sentinelError(ErrTokenMalformed)
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, sentinelError(ErrTokenMalformed)
	}

	return id, nil
}

func (a *HTTPController) currentUser(ctx router.Context) (*User, error) {
	id, err := a.currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	return a.Repo.Users().GetByID(ctx.Context(), id)
}

func (a *HTTPController) pathID(ctx router.Context) (uuid.UUID, error) {
	raw := ctx.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, sentinelError(ErrIdentityNotFound)
	}
	return id, nil
}

func (a *HTTPController) badRequest(ctx router.Context, err error) error {
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"error": err.Error(),
	})
}

func (a *HTTPController) handleError(ctx router.Context, err error) error {
	status := HTTPStatus(err)
	body := map[string]any{
		"error": err.Error(),
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		body["error"] = rich.Message
		if rich.TextCode != "" {
			body["code"] = rich.TextCode
		}
	}

	if status >= router.StatusInternalServerError {
		a.Logger.Error("request failed: %v", err)
	}

	return ctx.JSON(status, body)
}

func (a *HTTPController) authErrorHandler(ctx router.Context, err error) error {
	if err.Error() == jwtware.ErrJWTMissingOrMalformed.Error() {
		return ctx.JSON(router.StatusUnauthorized, map[string]any{
			"error": "missing or malformed token",
		})
	}

	if IsTokenExpiredError(err) || IsMalformedError(err) {
		return a.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusForbidden, map[string]any{
		"error": "insufficient role",
		"code":  TextCodeAdminRequired,
	})
}

func profileFromIdentity(identity Identity) map[string]any {
	if ui, ok := identity.(UserIdentity); ok && ui.User() != nil {
		return map[string]any{
			"id":       ui.User().ID,
			"name":     ui.User().Name,
			"email":    ui.User().Email,
			"role":     ui.User().Role,
			"provider": ui.User().Provider,
		}
	}

	return map[string]any{
		"id":    identity.ID(),
		"name":  identity.Name(),
		"email": identity.Email(),
		"role":  identity.Role(),
	}
}
