package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.olrik.dev/wrapperctl/internal/logfile"
	"golang.org/x/term"
)

// Console writes banners and echoed lines for the operator and reads their input
type Console struct {
	out          io.Writer
	in           *bufio.Reader
	name         string // Controller name used in command hints
	styles       Styles
	readPassword func() (string, error)
}

// New creates a console. name is how the operator invokes the controller,
// e.g. "wrapperctl", and is used in the follow-up command hints.
func New(out io.Writer, in io.Reader, name string) *Console {
	return &Console{
		out:          out,
		in:           bufio.NewReader(in),
		name:         name,
		styles:       NewStyles(out),
		readPassword: readTerminalPassword,
	}
}

// NewStdio creates a console on the process's standard streams
func NewStdio(name string) *Console {
	return New(os.Stdout, os.Stdin, name)
}

// SetPasswordReader replaces the no-echo password reader
func (c *Console) SetPasswordReader(fn func() (string, error)) {
	c.readPassword = fn
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) rule() string {
	return c.styles.Rule.Render(rule())
}

func (c *Console) command(sub string) string {
	if sub == "" {
		return c.styles.Command.Render("    " + c.name)
	}
	return c.styles.Command.Render("    " + c.name + " " + sub)
}

// Flush forces buffered output to the terminal when out supports it
func (c *Console) Flush() {
	if f, ok := c.out.(interface{ Sync() error }); ok {
		f.Sync()
	}
}

// Echo prints one line of managed process output with its timestamp
func (c *Console) Echo(ts time.Time, line string) {
	fmt.Fprintln(c.out, logfile.Format(ts, line))
}

// ReadLine prints prompt and returns the next input line without its terminator
func (c *Console) ReadLine(prompt string) (string, error) {
	c.printf("%s", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadPassword prints prompt and reads a password without echo
func (c *Console) ReadPassword(prompt string) (string, error) {
	c.printf("%s", prompt)
	password, err := c.readPassword()
	c.printf("\n")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// readTerminalPassword reads from /dev/tty, falling back to stdin when there
// is no controlling terminal
func readTerminalPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	tty, err := os.Open("/dev/tty")
	if err == nil {
		defer tty.Close()
		fd = int(tty.Fd())
	}

	passwordBytes, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	return string(passwordBytes), nil
}

// PromptCredentials shows the login banner and returns "username:password"
func (c *Console) PromptCredentials() (string, error) {
	c.printf(`
%s

%s
To continue, please log in with your Apple ID credentials (email or phone number).

%s
If you have Two-Factor Authentication (2FA) enabled, a verification code will be sent to your trusted device.
Enter the code to complete the login process.

%s
Visit Reset your password (https://iforgot.apple.com/password/verify/appleid) to reset it.

%s
For any login issues, please visit Apple Support (https://support.apple.com/) for assistance.


`,
		c.rule(),
		c.styles.Title.Render("Login with Your Apple Music / iCloud or Apple ID"),
		c.styles.Bold.Render("Note:"),
		c.styles.Bold.Render("Forgot Your Password?"),
		c.styles.Bold.Render("Need Further Help?"),
	)

	username, err := c.ReadLine("Username (add +86 prefix for Chinese mainland accounts): ")
	if err != nil {
		return "", err
	}
	password, err := c.ReadPassword("Password: ")
	if err != nil {
		return "", err
	}
	c.printf("\n")

	return username + ":" + password, nil
}

// PromptTwoFactorCode announces a 2FA request and reads the operator's code
// exactly as typed. Validation is left to the caller.
func (c *Console) PromptTwoFactorCode() (string, error) {
	c.printf("\n\n%s\nA 2FA passcode has been sent to your devices using your preferred method.\n",
		c.styles.Warning.Render("Two-Factor Authentication (2FA) passcode required:"))
	code, err := c.ReadLine("\n\nEnter the 2FA code: ")
	c.printf("\n")
	return code, err
}
