// Package mail renders and dispatches account lifecycle emails.
package mail

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"

	"hrdesk/config"
	"hrdesk/internal/domain/entity"
	"hrdesk/internal/domain/service"
	"hrdesk/internal/errors"
)

var (
	verificationTmpl = template.Must(template.New("verification").Parse(`<h4>Verify Email</h4>
<p>Thanks for registering, {{.Name}}!</p>
{{if .Link}}<p>Please click the below link to verify your email address:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
{{else}}<p>Please use the below token to verify your email address with the <code>/accounts/verify-email</code> api route:</p>
<p><code>{{.Token}}</code></p>
{{end}}`))

	alreadyRegisteredTmpl = template.Must(template.New("already_registered").Parse(`<h4>Email Already Registered</h4>
<p>Your email <strong>{{.Email}}</strong> is already registered.</p>
{{if .Link}}<p>If you don't know your password please visit the <a href="{{.Link}}">forgot password</a> page.</p>
{{else}}<p>If you don't know your password you can reset it via the <code>/accounts/forgot-password</code> api route.</p>
{{end}}`))

	passwordResetTmpl = template.Must(template.New("password_reset").Parse(`<h4>Reset Password Email</h4>
{{if .Link}}<p>Please click the below link to reset your password, the link will be valid for {{.Window}}:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
{{else}}<p>Please use the below token to reset your password with the <code>/accounts/reset-password</code> api route:</p>
<p><code>{{.Token}}</code></p>
{{end}}`))
)

type templateData struct {
	Name   string
	Email  string
	Token  string
	Link   string
	Window string
}

type templateComposer struct {
	verifyPath string
	resetPath  string
	resetTTL   string
}

// NewComposer builds the html/template backed MailComposer.
func NewComposer(cfg *config.Config) service.MailComposer {
	return &templateComposer{
		verifyPath: cfg.Mail.VerifyURLPath,
		resetPath:  cfg.Mail.ResetURLPath,
		resetTTL:   cfg.Auth.ResetTokenTTL.String(),
	}
}

func (c *templateComposer) Verification(account *entity.Account, token, origin string) (*entity.MailMessage, error) {
	data := templateData{
		Name:  account.FirstName,
		Token: token,
		Link:  buildLink(origin, c.verifyPath, token),
	}

	return render(account.Email, "Sign-up Verification - Verify Email", verificationTmpl, data)
}

func (c *templateComposer) AlreadyRegistered(account *entity.Account, origin string) (*entity.MailMessage, error) {
	data := templateData{
		Email: account.Email,
		Link:  buildLink(origin, "/account/forgot-password", ""),
	}

	return render(account.Email, "Sign-up Verification - Email Already Registered", alreadyRegisteredTmpl, data)
}

func (c *templateComposer) PasswordReset(account *entity.Account, token, origin string) (*entity.MailMessage, error) {
	data := templateData{
		Token:  token,
		Link:   buildLink(origin, c.resetPath, token),
		Window: c.resetTTL,
	}

	return render(account.Email, "Sign-up Verification - Reset Password", passwordResetTmpl, data)
}

func render(to, subject string, tmpl *template.Template, data templateData) (*entity.MailMessage, error) {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return nil, errors.Wrapf(err, "failed to render %s email", tmpl.Name())
	}

	return &entity.MailMessage{
		To:       to,
		Subject:  subject,
		HTMLBody: body.String(),
	}, nil
}

// buildLink returns origin+path?token=..., or "" when the origin is not an absolute http(s) URL.
func buildLink(origin, path, token string) string {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return ""
	}

	base, err := url.Parse(origin)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return ""
	}

	link := base.JoinPath(path)
	if token != "" {
		query := link.Query()
		query.Set("token", token)
		link.RawQuery = query.Encode()
	}

	return link.String()
}
