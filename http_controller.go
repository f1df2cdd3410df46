package educonnect

import (
	"fmt"
	"net/http"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-educonnect/middleware/csrf"
)

// RegisterAppRoutes mounts the auth pages, the role dashboards and the
// session probe. Every route runs behind the instance middleware.
func RegisterAppRoutes[T any](app router.Router[T], opts ...AppControllerOption) *AppController {
	controller := NewAppController(opts...)
	routes := controller.Routes

	app.Get(routes.Home, controller.open(controller.Home)).SetName("home.get")

	app.Get(routes.SignIn, controller.open(controller.SignInChooser)).SetName("sign-in.get")
	app.Get(routes.SignIn+"/:type", controller.open(controller.SignInShow)).SetName("sign-in-role.get")
	app.Post(routes.SignIn+"/:type", controller.open(controller.SignInPost)).SetName("sign-in-role.post")

	app.Get(routes.SignUp, controller.open(controller.SignUpChooser)).SetName("sign-up.get")
	app.Get(routes.SignUp+"/:type", controller.open(controller.SignUpShow)).SetName("sign-up-role.get")
	app.Post(routes.SignUp+"/:type", controller.open(controller.SignUpPost)).SetName("sign-up-role.post")

	app.Post(routes.SignOut, controller.open(controller.SignOut)).SetName("sign-out.post")

	org := RoleOrganization.DashboardPath()
	app.Get(org, controller.guarded(RoleOrganization, controller.Dashboard)).
		SetName("organization-dashboard.get")
	app.Post(org+"/profile", controller.guarded(RoleOrganization, controller.ProfileUpdate)).
		SetName("organization-profile.post")
	app.Get(RequirementsPath, controller.guarded(RoleOrganization, controller.RequirementsIndex)).
		SetName("requirements.get")
	app.Get(RequirementsPath+"/create", controller.guarded(RoleOrganization, controller.RequirementNew)).
		SetName("requirements-create.get")
	app.Post(RequirementsPath+"/create", controller.guarded(RoleOrganization, controller.RequirementCreate)).
		SetName("requirements-create.post")

	edu := RoleEducator.DashboardPath()
	app.Get(edu, controller.guarded(RoleEducator, controller.Dashboard)).
		SetName("educator-dashboard.get")
	app.Post(edu+"/profile", controller.guarded(RoleEducator, controller.ProfileUpdate)).
		SetName("educator-profile.post")

	app.Get(routes.Session, controller.open(controller.SessionShow)).SetName("session.get")

	app.Get("/*", controller.NotFound).SetName("fallback.get")

	return controller
}

type AppControllerRoutes struct {
	Home    string
	SignIn  string
	SignUp  string
	SignOut string
	Session string
}

type AppControllerViews struct {
	Home            string
	Chooser         string
	SignIn          string
	SignUp          string
	Dashboard       string
	Requirements    string
	RequirementForm string
}

type AppController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Instances    *InstanceMiddleware
	Routes       *AppControllerRoutes
	Views        *AppControllerViews
	ErrorHandler router.ErrorHandler
	CSRF         router.MiddlewareFunc
	activitySink ActivitySink
}

type AppControllerOption func(*AppController) *AppController

func WithAppLogger(logger Logger) AppControllerOption {
	return func(c *AppController) *AppController {
		c.Logger = ensureLogger(logger)
		return c
	}
}

func WithAppRepository(repo RepositoryManager) AppControllerOption {
	return func(c *AppController) *AppController {
		c.Repo = repo
		return c
	}
}

func WithAppInstances(mw *InstanceMiddleware) AppControllerOption {
	return func(c *AppController) *AppController {
		c.Instances = mw
		return c
	}
}

func WithAppActivitySink(sink ActivitySink) AppControllerOption {
	return func(c *AppController) *AppController {
		c.activitySink = normalizeActivitySink(sink)
		return c
	}
}

// WithAppCSRF protects every form route. It runs after the instance
// middleware so tokens can be bound to the instance id.
func WithAppCSRF(mw router.MiddlewareFunc) AppControllerOption {
	return func(c *AppController) *AppController {
		c.CSRF = mw
		return c
	}
}

// WithAppConfig takes the sign in and home paths from cfg.
func WithAppConfig(cfg Config) AppControllerOption {
	return func(c *AppController) *AppController {
		if cfg == nil {
			return c
		}
		if path := cfg.GetSignInPath(); path != "" {
			c.Routes.SignIn = path
		}
		if path := cfg.GetHomePath(); path != "" {
			c.Routes.Home = path
		}
		return c
	}
}

func WithAppDebug(debug bool) AppControllerOption {
	return func(c *AppController) *AppController {
		c.Debug = debug
		return c
	}
}

func NewAppController(opts ...AppControllerOption) *AppController {
	c := &AppController{
		Logger:       defLogger{},
		activitySink: noopActivitySink{},
		Routes: &AppControllerRoutes{
			Home:    DefaultHomePath,
			SignIn:  DefaultSignInPath,
			SignUp:  DefaultSignUpPath,
			SignOut: "/auth/sign-out",
			Session: "/api/session",
		},
		Views: &AppControllerViews{
			Home:            "home",
			Chooser:         "auth/chooser",
			SignIn:          "auth/sign_in",
			SignUp:          "auth/sign_up",
			Dashboard:       "dashboard",
			Requirements:    "requirements/index",
			RequirementForm: "requirements/form",
		},
	}
	for _, opt := range opts {
		c = opt(c)
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = ErrorHandler(c.Logger, c.Routes.SignIn)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in app controller...")
	}

	if c.Instances == nil {
		panic("Missing InstanceMiddleware in app controller...")
	}

	return c
}

func (a *AppController) open(h router.HandlerFunc) router.HandlerFunc {
	if a.CSRF != nil {
		h = a.CSRF(h)
	}
	return a.Instances.Handler()(h)
}

func (a *AppController) guarded(role Role, h router.HandlerFunc) router.HandlerFunc {
	guard := ProtectedRoute(
		WithExpectedRole(role),
		WithSignInPath(a.Routes.SignIn),
		WithGuardLogger(a.Logger),
	)
	return a.open(guard(h))
}

func (a *AppController) Home(ctx router.Context) error {
	identity := CurrentIdentity(ctx)
	return a.render(ctx, a.Views.Home, router.ViewContext{
		"identity":      identity,
		"role":          string(Classify(identity)),
		"authenticated": identity != nil,
	})
}

func (a *AppController) SignInChooser(ctx router.Context) error {
	return a.renderChooser(ctx, "sign-in", a.Routes.SignIn)
}

func (a *AppController) SignInShow(ctx router.Context) error {
	role, ok := ParseRole(ctx.Param("type"))
	if !ok {
		return a.SignInChooser(ctx)
	}
	return a.renderForm(ctx, a.Views.SignIn, role, router.ViewContext{}, nil)
}

func (a *AppController) SignInPost(ctx router.Context) error {
	role, ok := ParseRole(ctx.Param("type"))
	if !ok {
		return a.SignInChooser(ctx)
	}

	inst, err := a.instance(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := SigninMessage{
		Email:    ctx.FormValue("email"),
		Password: ctx.FormValue("password"),
		Role:     role,
	}

	signin := NewSigninHandler(inst.Client(), inst.Store()).
		WithLogger(a.Logger).
		WithActivitySink(a.activitySink)

	res, err := signin.Execute(RequestContext(ctx), payload)
	if err != nil {
		a.Logger.Info("sign in failed", "role", role, "error", err)
		return a.renderForm(ctx, a.Views.SignIn, role, router.ViewContext{"email": payload.Email}, err)
	}

	return ctx.Redirect(res.Redirect, http.StatusSeeOther)
}

func (a *AppController) SignUpChooser(ctx router.Context) error {
	if CurrentIdentity(ctx) != nil {
		return ctx.Redirect(a.Routes.Home, redirectStatus(ctx))
	}
	return a.renderChooser(ctx, "sign-up", a.Routes.SignUp)
}

func (a *AppController) SignUpShow(ctx router.Context) error {
	if CurrentIdentity(ctx) != nil {
		return ctx.Redirect(a.Routes.Home, redirectStatus(ctx))
	}

	role, ok := ParseRole(ctx.Param("type"))
	if !ok {
		return a.renderChooser(ctx, "sign-up", a.Routes.SignUp)
	}
	return a.renderForm(ctx, a.Views.SignUp, role, router.ViewContext{}, nil)
}

func (a *AppController) SignUpPost(ctx router.Context) error {
	if CurrentIdentity(ctx) != nil {
		return ctx.Redirect(a.Routes.Home, redirectStatus(ctx))
	}

	role, ok := ParseRole(ctx.Param("type"))
	if !ok {
		return a.renderChooser(ctx, "sign-up", a.Routes.SignUp)
	}

	inst, err := a.instance(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := SignupMessage{
		Email:    ctx.FormValue("email"),
		Password: ctx.FormValue("password"),
		Role:     role,
	}

	if a.Debug {
		fmt.Println("======= SIGN UP ======")
		fmt.Println(print.MaybePrettyJSON(map[string]any{"email": payload.Email, "role": role}))
		fmt.Println("======================")
	}

	signup := NewSignupHandler(inst.Client(), inst.Store(), a.Repo.Profiles()).
		WithLogger(a.Logger).
		WithActivitySink(a.activitySink)

	res, err := signup.Execute(RequestContext(ctx), payload)
	if err != nil {
		a.Logger.Info("sign up failed", "role", role, "error", err)
		return a.renderForm(ctx, a.Views.SignUp, role, router.ViewContext{"email": payload.Email}, err)
	}

	return ctx.Redirect(res.Redirect, http.StatusSeeOther)
}

func (a *AppController) SignOut(ctx router.Context) error {
	inst, err := a.instance(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	signout := NewSignoutHandler(inst.Client(), inst.Store()).
		WithLogger(a.Logger).
		WithActivitySink(a.activitySink)

	if err := signout.Execute(RequestContext(ctx)); err != nil {
		a.Logger.Warn("sign out finished with error", "error", err)
	}

	a.Instances.Evict(ctx)

	return ctx.Redirect(a.Routes.Home, http.StatusSeeOther)
}

func (a *AppController) Dashboard(ctx router.Context) error {
	return a.renderDashboard(ctx, nil)
}

func (a *AppController) ProfileUpdate(ctx router.Context) error {
	identity := CurrentIdentity(ctx)

	payload := UpdateProfileMessage{
		Name:           ctx.FormValue("name"),
		Description:    ctx.FormValue("description"),
		Website:        ctx.FormValue("website"),
		FullName:       ctx.FormValue("full_name"),
		Bio:            ctx.FormValue("bio"),
		Expertise:      ctx.FormValue("expertise"),
		Qualifications: ctx.FormValue("qualifications"),
	}

	update := NewUpdateProfileHandler(a.Repo.Profiles())
	if _, err := update.Execute(RequestContext(ctx), identity, payload); err != nil {
		if IsValidationError(err) {
			return a.renderDashboard(ctx, err)
		}
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Redirect(Classify(identity).DashboardPath(), http.StatusSeeOther)
}

func (a *AppController) RequirementsIndex(ctx router.Context) error {
	identity := CurrentIdentity(ctx)

	list := NewListRequirementsHandler(a.Repo.Requirements())
	records, err := list.Execute(RequestContext(ctx), identity)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return a.render(ctx, a.Views.Requirements, router.ViewContext{
		"identity":     identity,
		"requirements": records,
	})
}

func (a *AppController) RequirementNew(ctx router.Context) error {
	return a.render(ctx, a.Views.RequirementForm, router.ViewContext{
		"record":         CreateRequirementMessage{LocationType: LocationRemote},
		"errors":         map[string]string{},
		"location_types": []LocationType{LocationRemote, LocationInPerson, LocationHybrid},
	})
}

func (a *AppController) RequirementCreate(ctx router.Context) error {
	identity := CurrentIdentity(ctx)

	payload := CreateRequirementMessage{
		Title:             ctx.FormValue("title"),
		Description:       ctx.FormValue("description"),
		SubjectArea:       ctx.FormValue("subject_area"),
		RequiredExpertise: ctx.FormValue("required_expertise"),
		Duration:          ctx.FormValue("duration"),
		BudgetRange:       ctx.FormValue("budget_range"),
		LocationType:      LocationType(ctx.FormValue("location_type")),
		Location:          ctx.FormValue("location"),
	}

	create := NewCreateRequirementHandler(a.Repo.Requirements()).
		WithLogger(a.Logger).
		WithActivitySink(a.activitySink)

	res, err := create.Execute(RequestContext(ctx), identity, payload)
	if err != nil {
		if !IsValidationError(err) {
			return a.ErrorHandler(ctx, err)
		}
		return a.render(ctx, a.Views.RequirementForm, router.ViewContext{
			"record":         payload,
			"errors":         FieldErrors(err),
			"message":        UserMessage(err),
			"location_types": []LocationType{LocationRemote, LocationInPerson, LocationHybrid},
		})
	}

	return ctx.Redirect(res.Redirect, http.StatusSeeOther)
}

// SessionShow reports the request's session state as JSON.
func (a *AppController) SessionShow(ctx router.Context) error {
	identity := CurrentIdentity(ctx)

	out := map[string]any{
		"authenticated": identity != nil,
		"role":          string(Classify(identity)),
		"identity_id":   "",
	}
	if identity != nil {
		out["identity_id"] = identity.ID
	}
	if token, ok := ctx.Locals(csrf.DefaultContextKey).(string); ok && token != "" {
		out["csrf_token"] = token
	}

	return ctx.JSON(router.StatusOK, out)
}

func (a *AppController) NotFound(ctx router.Context) error {
	return ctx.Redirect(a.Routes.Home, redirectStatus(ctx))
}

func (a *AppController) instance(ctx router.Context) (*Instance, error) {
	inst, ok := InstanceFromRouterContext(ctx)
	if !ok {
		return nil, errors.New("request has no application instance", errors.CategoryInternal).
			WithCode(errors.CodeInternal)
	}
	return inst, nil
}

func (a *AppController) renderChooser(ctx router.Context, mode, base string) error {
	options := []router.ViewContext{}
	for _, role := range GetAllRoles() {
		options = append(options, router.ViewContext{
			"role":  string(role),
			"label": role.Label(),
			"href":  base + "/" + string(role),
		})
	}

	return a.render(ctx, a.Views.Chooser, router.ViewContext{
		"mode":  mode,
		"roles": options,
	})
}

func (a *AppController) renderForm(ctx router.Context, view string, role Role, record router.ViewContext, err error) error {
	return a.render(ctx, view, router.ViewContext{
		"role":       string(role),
		"role_label": role.Label(),
		"record":     record,
		"errors":     FieldErrors(err),
		"message":    UserMessage(err),
	})
}

func (a *AppController) renderDashboard(ctx router.Context, formErr error) error {
	identity := CurrentIdentity(ctx)

	ensure := NewEnsureProfileHandler(a.Repo.Profiles()).
		WithLogger(a.Logger).
		WithActivitySink(a.activitySink)

	profile, err := ensure.Execute(RequestContext(ctx), identity)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return a.render(ctx, a.Views.Dashboard, router.ViewContext{
		"identity": identity,
		"role":     string(Classify(identity)),
		"profile":  profile,
		"errors":   FieldErrors(formErr),
		"message":  UserMessage(formErr),
	})
}

func (a *AppController) render(ctx router.Context, view string, data router.ViewContext) error {
	for key, value := range TemplateHelpersWithRouter(ctx) {
		if _, exists := data[key]; !exists {
			data[key] = value
		}
	}
	return ctx.Render(view, data)
}
