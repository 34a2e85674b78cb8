// Package main is certctl, a terminal client for the CertifyPro platform.
// It talks to the platform API directly with the same typed client the portal
// gateway uses, and keeps the bearer token sealed on disk between invocations.
// Each invocation is one-shot: no daemon, no local cache of platform state.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/certifypro/certportal/internal/certify"
	"github.com/certifypro/certportal/internal/crypto"
	"github.com/certifypro/certportal/internal/platform"
	"github.com/certifypro/certportal/internal/session"
	"github.com/certifypro/certportal/internal/workflow"
	"github.com/certifypro/certportal/pkg/anchor"
)

const defaultPlatformURL = "http://localhost:8081/api"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() string {
	return strings.TrimSpace(`
Usage: certctl <command> [flags]

Commands:
  login      Sign in and store the session token
  logout     Discard the stored session token
  whoami     Show the signed-in account
  verify     Verify a certificate by its verification id
  certs      List your certificates (--issued for certificates you issued)
  cert       Show one certificate by id
  issue      Issue a certificate directly (issuers only)
  revoke     Revoke a certificate by id (issuers only)
  requests   List certificate requests (--pending | --all)
  request    Submit a certification request to an issuer
  approve    Approve a pending request (issuers only)
  reject     Reject a pending request (issuers only)
  stats      Show the dashboard statistics for your role

Environment:
  CERTCTL_PLATFORM_URL   Platform API base URL (default ` + defaultPlatformURL + `)
  CERTCTL_STATE_DIR      Directory for the sealed token (default: user config dir)
`)
}

// app bundles what every subcommand needs: the platform client, the sealed
// token store, and the stored credentials (zero value when signed out).
type app struct {
	client *platform.Client
	tokens *session.FileStore
	creds  platform.Credentials
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Println(usage())
		return nil
	}
	command, rest := args[0], args[1:]

	if command == "help" || command == "-h" || command == "--help" {
		fmt.Println(usage())
		return nil
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch command {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout()
	case "whoami":
		return a.whoami(ctx)
	case "verify":
		return a.verify(ctx, rest)
	case "certs":
		return a.certs(ctx, rest)
	case "cert":
		return a.cert(ctx, rest)
	case "issue":
		return a.issue(ctx, rest)
	case "revoke":
		return a.revoke(ctx, rest)
	case "requests":
		return a.requests(ctx, rest)
	case "request":
		return a.request(ctx, rest)
	case "approve":
		return a.approve(ctx, rest)
	case "reject":
		return a.reject(ctx, rest)
	case "stats":
		return a.stats(ctx)
	default:
		return fmt.Errorf("unknown command: %s\n\n%s", command, usage())
	}
}

func newApp() (*app, error) {
	baseURL := os.Getenv("CERTCTL_PLATFORM_URL")
	if baseURL == "" {
		baseURL = defaultPlatformURL
	}
	client, err := platform.NewClient(platform.Settings{BaseURL: baseURL})
	if err != nil {
		return nil, err
	}

	dir, err := stateDir()
	if err != nil {
		return nil, err
	}
	cipher, err := loadOrCreateCipher(dir)
	if err != nil {
		return nil, err
	}

	a := &app{client: client, tokens: session.NewFileStore(dir, cipher)}
	if token, err := a.tokens.Load(); err == nil {
		a.creds = platform.Credentials{Token: token}
	}
	return a, nil
}

func stateDir() (string, error) {
	if dir := os.Getenv("CERTCTL_STATE_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate config dir (set CERTCTL_STATE_DIR): %w", err)
	}
	return filepath.Join(base, "certctl"), nil
}

// loadOrCreateCipher reads the local sealing key, generating one on first use.
// The key only obscures the token at rest on this machine; it never leaves
// the state directory.
func loadOrCreateCipher(dir string) (*crypto.TokenCipher, error) {
	keyPath := filepath.Join(dir, "key")
	key, err := os.ReadFile(keyPath)
	if errors.Is(err, os.ErrNotExist) {
		key, err = crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(keyPath, key, 0o600); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return crypto.NewTokenCipher(key)
}

// requireAuth validates the stored token once against the platform. An invalid
// token is removed so the next command starts clean.
func (a *app) requireAuth(ctx context.Context) (*platform.User, error) {
	if a.creds.Token == "" {
		return nil, errors.New("not signed in (run: certctl login)")
	}
	user, err := a.client.VerifyToken(ctx, a.creds)
	if err != nil {
		if errors.Is(err, platform.ErrUnauthorized) {
			a.tokens.Clear()
			return nil, errors.New("session expired, sign in again (run: certctl login)")
		}
		return nil, err
	}
	return user, nil
}

// ---------------------------------------------------------------------------
// Auth commands
// ---------------------------------------------------------------------------

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when omitted)")
	fs.Parse(args)

	if *email == "" {
		return errors.New("--email is required")
	}
	pw := *password
	if pw == "" {
		fmt.Print("Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		pw = strings.TrimSpace(line)
	}

	auth, err := a.client.Login(ctx, *email, pw)
	if err != nil {
		return err
	}
	if err := a.tokens.Save(auth.Token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	fmt.Printf("Signed in as %s (%s)\n", auth.User.Username, auth.User.Role)
	return nil
}

func (a *app) logout() error {
	if err := a.tokens.Clear(); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	user, err := a.requireAuth(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\n", user.Username, user.Email)
	fmt.Printf("Role: %s\n", user.Role)
	if user.Organization != "" {
		fmt.Printf("Organization: %s\n", user.Organization)
	}
	if len(user.Skills) > 0 {
		fmt.Printf("Skills: %s\n", strings.Join(user.Skills, ", "))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Certificate commands
// ---------------------------------------------------------------------------

func (a *app) verify(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: certctl verify <verification-id>")
	}

	result := certify.NewVerifier(a.client).Verify(ctx, args[0])
	if result.Valid {
		fmt.Println("VALID")
	} else {
		fmt.Println("INVALID")
		if result.Reason != "" {
			fmt.Printf("Reason: %s\n", result.Reason)
		}
	}
	if cert := result.Certificate; cert != nil {
		fmt.Printf("Certificate: %s\n", cert.Name)
		fmt.Printf("Holder: %s\n", cert.HolderName)
		fmt.Printf("Issuer: %s\n", cert.IssuerName)
		fmt.Printf("Issued: %s\n", cert.IssuedDate)
		if cert.Expires() {
			fmt.Printf("Expires: %s\n", cert.ExpiryDate)
		}
		if cert.BlockchainHash != "" {
			fmt.Printf("Anchor: %s (well-formed: %v)\n",
				anchor.Short(cert.BlockchainHash), anchor.WellFormed(cert.BlockchainHash))
		}
	}
	return nil
}

func (a *app) certs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("certs", flag.ExitOnError)
	issued := fs.Bool("issued", false, "list certificates you issued instead of ones you hold")
	fs.Parse(args)

	if _, err := a.requireAuth(ctx); err != nil {
		return err
	}

	var certs []platform.Certificate
	var err error
	if *issued {
		certs, err = a.client.IssuedCertificates(ctx, a.creds)
	} else {
		certs, err = a.client.MyCertificates(ctx, a.creds)
	}
	if err != nil {
		return err
	}
	if len(certs) == 0 {
		fmt.Println("No certificates")
		return nil
	}

	classifier := certify.NewClassifier(0)
	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tHOLDER\tSTATUS\tISSUED")
	for i := range certs {
		c := &certs[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, c.HolderUsername, classifier.DisplayStatus(c, now), c.IssuedDate)
	}
	return w.Flush()
}

func (a *app) cert(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: certctl cert <id>")
	}
	if _, err := a.requireAuth(ctx); err != nil {
		return err
	}

	cert, err := a.client.GetCertificate(ctx, a.creds, args[0])
	if err != nil {
		return err
	}

	classifier := certify.NewClassifier(0)
	fmt.Printf("Name: %s\n", cert.Name)
	if cert.Description != "" {
		fmt.Printf("Description: %s\n", cert.Description)
	}
	fmt.Printf("Holder: %s (%s)\n", cert.HolderName, cert.HolderUsername)
	fmt.Printf("Issuer: %s\n", cert.IssuerName)
	fmt.Printf("Status: %s\n", classifier.DisplayStatus(cert, time.Now()))
	fmt.Printf("Issued: %s\n", cert.IssuedDate)
	if cert.Expires() {
		fmt.Printf("Expires: %s\n", cert.ExpiryDate)
	}
	fmt.Printf("Verification ID: %s\n", cert.VerificationID)
	if cert.BlockchainHash != "" {
		fmt.Printf("Anchor: %s\n", anchor.Short(cert.BlockchainHash))
	}
	if len(cert.Skills) > 0 {
		fmt.Printf("Skills: %s\n", strings.Join(cert.Skills, ", "))
	}
	fmt.Printf("Views: %d\n", cert.Views)
	return nil
}

func (a *app) issue(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("issue", flag.ExitOnError)
	name := fs.String("name", "", "certificate name")
	description := fs.String("description", "", "certificate description")
	recipient := fs.String("recipient", "", "recipient email")
	issuedDate := fs.String("issued", "", "issued date (YYYY-MM-DD, default today)")
	expiryDate := fs.String("expiry", "", "expiry date (YYYY-MM-DD, optional)")
	skills := fs.String("skills", "", "comma-separated skills")
	fs.Parse(args)

	if *name == "" || *recipient == "" {
		return errors.New("--name and --recipient are required")
	}
	if _, err := a.requireAuth(ctx); err != nil {
		return err
	}

	input := platform.IssueInput{
		Name:           *name,
		Description:    *description,
		RecipientEmail: *recipient,
		Skills:         splitSkills(*skills),
	}
	var err error
	if *issuedDate == "" {
		input.IssuedDate = platform.DateOf(time.Now())
	} else if input.IssuedDate, err = platform.ParseDate(*issuedDate); err != nil {
		return fmt.Errorf("invalid --issued: %w", err)
	}
	if *expiryDate != "" {
		d, err := platform.ParseDate(*expiryDate)
		if err != nil {
			return fmt.Errorf("invalid --expiry: %w", err)
		}
		input.ExpiryDate = &d
	}

	cert, err := a.client.IssueCertificate(ctx, a.creds, input)
	if err != nil {
		return err
	}
	fmt.Printf("Issued %s (id %s, verification id %s)\n", cert.Name, cert.ID, cert.VerificationID)
	return nil
}

func (a *app) revoke(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: certctl revoke <id>")
	}
	if _, err := a.requireAuth(ctx); err != nil {
		return err
	}
	if err := a.client.RevokeCertificate(ctx, a.creds, args[0]); err != nil {
		return err
	}
	fmt.Printf("Revoked %s\n", args[0])
	return nil
}

// ---------------------------------------------------------------------------
// Request commands
// ---------------------------------------------------------------------------

func (a *app) requests(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("requests", flag.ExitOnError)
	pending := fs.Bool("pending", false, "list the pending queue addressed to you (issuers)")
	all := fs.Bool("all", false, "list every request on the platform (admins)")
	fs.Parse(args)

	if _, err := a.requireAuth(ctx); err != nil {
		return err
	}

	var reqs []platform.CertificateRequest
	var err error
	switch {
	case *pending:
		reqs, err = a.client.PendingRequests(ctx, a.creds)
	case *all:
		reqs, err = a.client.AllRequests(ctx, a.creds)
	default:
		reqs, err = a.client.MyRequests(ctx, a.creds)
	}
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		fmt.Println("No requests")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREQUESTER\tISSUER\tSTATUS\tSKILLS")
	for _, r := range reqs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.RequesterUsername, r.IssuerUsername, r.Status, strings.Join(r.Skills, ","))
	}
	return w.Flush()
}

func (a *app) request(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("request", flag.ExitOnError)
	issuer := fs.String("issuer", "", "issuer username to request certification from")
	message := fs.String("message", "", "message to the issuer")
	skills := fs.String("skills", "", "comma-separated skills to certify")
	fs.Parse(args)

	if _, err := a.requireAuth(ctx); err != nil {
		return err
	}

	tracker := workflow.NewTracker(a.client)
	req, err := tracker.Submit(ctx, a.creds, platform.CreateRequestInput{
		IssuerUsername: *issuer,
		RequestMessage: *message,
		Skills:         splitSkills(*skills),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Submitted request %s to %s\n", req.ID, req.IssuerUsername)
	return nil
}

func (a *app) approve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("approve", flag.ExitOnError)
	name := fs.String("name", "", "name of the certificate to mint")
	description := fs.String("description", "", "certificate description")
	issuedDate := fs.String("issued", "", "issued date (YYYY-MM-DD, default today)")
	expiryDate := fs.String("expiry", "", "expiry date (YYYY-MM-DD, optional)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("usage: certctl approve --name <certificate name> [flags] <request-id>")
	}
	if _, err := a.requireAuth(ctx); err != nil {
		return err
	}

	input := platform.ApprovalInput{CertificateName: *name, Description: *description}
	var err error
	if *issuedDate == "" {
		input.IssuedDate = platform.DateOf(time.Now())
	} else if input.IssuedDate, err = platform.ParseDate(*issuedDate); err != nil {
		return fmt.Errorf("invalid --issued: %w", err)
	}
	if *expiryDate != "" {
		d, err := platform.ParseDate(*expiryDate)
		if err != nil {
			return fmt.Errorf("invalid --expiry: %w", err)
		}
		input.ExpiryDate = &d
	}

	req, err := workflow.NewTracker(a.client).Approve(ctx, a.creds, fs.Arg(0), input)
	if err != nil {
		return err
	}
	fmt.Printf("Approved request %s\n", req.ID)
	return nil
}

func (a *app) reject(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reject", flag.ExitOnError)
	reason := fs.String("reason", "", "why the request is rejected (required)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("usage: certctl reject --reason <text> <request-id>")
	}
	if _, err := a.requireAuth(ctx); err != nil {
		return err
	}

	req, err := workflow.NewTracker(a.client).Reject(ctx, a.creds, fs.Arg(0), *reason)
	if err != nil {
		return err
	}
	fmt.Printf("Rejected request %s\n", req.ID)
	return nil
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

func (a *app) stats(ctx context.Context) error {
	user, err := a.requireAuth(ctx)
	if err != nil {
		return err
	}

	switch user.Role {
	case platform.RoleIssuer:
		s, err := a.client.IssuerStats(ctx, a.creds, user.Username)
		if err != nil {
			return err
		}
		fmt.Printf("Total issued: %d\n", s.TotalIssued)
		fmt.Printf("Issued this month: %d\n", s.MonthlyIssue)
		fmt.Printf("Active templates: %d\n", s.ActiveTemplates)
		fmt.Printf("Verification rate: %.1f%%\n", s.VerificationRate)
	case platform.RoleEmployer:
		s, err := a.client.EmployerStats(ctx, a.creds, user.Username)
		if err != nil {
			return err
		}
		fmt.Printf("Profiles viewed: %d\n", s.ProfilesViewed)
		fmt.Printf("Saved profiles: %d\n", s.SavedProfiles)
		fmt.Printf("Searches this month: %d\n", s.SearchesThisMonth)
	case platform.RoleAdmin:
		s, err := a.client.AdminStats(ctx, a.creds)
		if err != nil {
			return err
		}
		fmt.Printf("Total users: %d\n", s.TotalUsers)
		fmt.Printf("Total certificates: %d\n", s.TotalCertificates)
		fmt.Printf("Active issuers: %d\n", s.ActiveIssuers)
		fmt.Printf("Monthly growth: %.1f%%\n", s.MonthlyGrowth)
		for _, row := range s.UserBreakdown {
			fmt.Printf("  %s: %d (%.1f%%)\n", row.Role, row.Count, row.Percentage)
		}
	case platform.RoleIndividual:
		certs, err := a.client.MyCertificates(ctx, a.creds)
		if err != nil {
			return err
		}
		reqs, err := a.client.MyRequests(ctx, a.creds)
		if err != nil {
			return err
		}
		var active, pending int
		for i := range certs {
			if certs[i].Status == platform.StatusActive {
				active++
			}
		}
		for _, r := range reqs {
			if r.Status == platform.RequestPending {
				pending++
			}
		}
		fmt.Printf("Certificates: %d (%d active)\n", len(certs), active)
		fmt.Printf("Pending requests: %d\n", pending)
	default:
		return fmt.Errorf("no statistics for role %s", user.Role)
	}
	return nil
}

func splitSkills(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
