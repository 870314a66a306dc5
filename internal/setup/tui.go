package setup

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/l2pay/config"
	"github.com/vadiminshakov/l2pay/internal/domain"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#1c60ff", Dark: "#1c60ff"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f2f2f2")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

const wizardTitle = "L2PAY CONFIG WIZARD"

type preferences interface {
	SetTheme(domain.Theme) error
	SetFiat(domain.Fiat) error
}

func screen(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render(wizardTitle))
	fmt.Println(stepStyle.Render(step))
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
// Theme and fiat choices go to prefs.
func RunTUI(path string, prefs preferences) error {
	var (
		network     string
		exchangeURL string
		rpcURL      string
		chainIDStr  string
		pageSizeStr string
		rpsStr      string
		themeStr    string
		fiatName    string
		confirm     bool
	)

	// defaults
	network = "mainnet"
	pageSizeStr = "50"
	rpsStr = "5"
	themeStr = string(domain.ThemeLight)
	fiatName = domain.DefaultFiat().Name

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render(wizardTitle))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Point your wallet at a layer-2 exchange.\n"))

	fmt.Println(stepStyle.Render("STEP 1: NETWORK"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose the network").
				Options(
					huh.NewOption("Ethereum mainnet", "mainnet"),
					huh.NewOption("Goerli testnet", "goerli"),
					huh.NewOption("Custom", "custom"),
				).
				Value(&network),
		),
	).Run()
	if err != nil {
		return err
	}

	switch network {
	case "mainnet":
		exchangeURL, chainIDStr = "https://api.loopring.io", "1"
	case "goerli":
		exchangeURL, chainIDStr = "https://uat2.loopring.io", "5"
	}

	screen("STEP 2: ENDPOINTS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Relayer URL").
				Value(&exchangeURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Chain ID").
				Value(&chainIDStr).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Ethereum RPC URL").
				Description("Needed for deposits, withdrawals, approvals and registration. Leave empty for read-only use.").
				Value(&rpcURL).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					return validateURL(s)
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	screen("STEP 3: CLIENT")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("History page size").
				Value(&pageSizeStr).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Requests per second").
				Description("Pace of relayer requests (e.g. 5, 0.5)").
				Value(&rpsStr).
				Validate(validateRate),
		),
	).Run()
	if err != nil {
		return err
	}

	screen("STEP 4: APPEARANCE")
	fiatOptions := make([]huh.Option[string], 0, len(domain.SupportedFiats))
	for _, f := range domain.SupportedFiats {
		fiatOptions = append(fiatOptions, huh.NewOption(fmt.Sprintf("%s (%s)", f.Name, f.Symbol), f.Name))
	}
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Theme").
				Options(
					huh.NewOption("Light", string(domain.ThemeLight)),
					huh.NewOption("Dark", string(domain.ThemeDark)),
				).
				Value(&themeStr),
			huh.NewSelect[string]().
				Title("Fiat currency").
				Options(fiatOptions...).
				Value(&fiatName),
		),
	).Run()
	if err != nil {
		return err
	}

	screen("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Relayer: %s\nChain: %s\nRPC: %s\nPage size: %s\nRate: %s req/s\nTheme: %s\nFiat: %s\n",
		exchangeURL, chainIDStr, orNone(rpcURL), pageSizeStr, rpsStr, themeStr, fiatName,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render(
		fmt.Sprintf("The wallet key is read from $%s and never written to disk.", config.PrivateKeyEnv)))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	cfgTmp := config.ConfigTmp{
		ExchangeURL:          exchangeURL,
		RPCURL:               rpcURL,
		ChainIDStr:           chainIDStr,
		PageSizeStr:          pageSizeStr,
		RequestsPerSecondStr: rpsStr,
	}
	if err := config.Save(path, cfgTmp); err != nil {
		return err
	}

	if prefs != nil {
		if err := prefs.SetTheme(domain.Theme(themeStr)); err != nil {
			return fmt.Errorf("failed to save theme: %w", err)
		}
		fiat, _ := domain.FiatByName(fiatName)
		if err := prefs.SetFiat(fiat); err != nil {
			return fmt.Errorf("failed to save fiat: %w", err)
		}
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", path)))
	time.Sleep(500 * time.Millisecond) // small pause to read success message
	return nil
}

func validateURL(s string) error {
	u, err := url.ParseRequestURI(s)
	if err != nil || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateRate(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("must be between 0 and 100")
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
