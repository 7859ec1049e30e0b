package console

import (
	"fmt"
	"strings"
)

// StatusEntry is one running instance as shown by the status command
type StatusEntry struct {
	PID     int32
	Started string
}

// NotRunning reports that no instance was found
func (c *Console) NotRunning() {
	c.printf("\n%s\n\n%s\n\nTo start a new instance:\n%s\n\n\n%s\n",
		c.rule(),
		c.styles.Warning.Render("Status: Not running"),
		c.command(""),
		c.rule(),
	)
}

// Running lists the running instances
func (c *Console) Running(entries []StatusEntry) {
	var b strings.Builder
	label := "Instance:"
	if len(entries) > 1 {
		label = "Instances:"
	}

	fmt.Fprintf(&b, "\n%s\n\n%s\n%s", c.rule(), c.styles.Success.Render("Status: Running"), label)
	for _, e := range entries {
		fmt.Fprintf(&b, "\n    PID: %d\n    Started at: %s", e.PID, e.Started)
	}
	fmt.Fprintf(&b, "\n\nTo terminate, run:\n%s\n\n\n%s\n", c.command("logout"), c.rule())

	c.printf("%s", b.String())
}

// AlreadyRunning is printed when start finds a live instance
func (c *Console) AlreadyRunning() {
	c.printf("\n%s\n\n%s\nTo check status:\n%s\n\nTo start a new instance, please logout first:\n%s\n\n%s\n",
		c.rule(),
		c.styles.Error.Render("Error: An instance is already running."),
		c.command("status"),
		c.command("logout"),
		c.rule(),
	)
}

// NoInstances is printed by logout when there is nothing to terminate
func (c *Console) NoInstances() {
	c.printf("\n%s\n\nNo running instances found.\nTo start a new instance:\n%s\n\n\n%s\n",
		c.rule(),
		c.command(""),
		c.rule(),
	)
}

// Terminating opens the logout output
func (c *Console) Terminating() {
	c.printf("\n%s\n\nTerminating instances...\n", c.rule())
}

// Terminated reports one terminated PID
func (c *Console) Terminated(pid int32) {
	c.printf("Terminated PID: %d\n", pid)
}

// PermissionDenied reports a PID that could not be signalled
func (c *Console) PermissionDenied(pid int32) {
	c.printf("%s\n", c.styles.Error.Render(fmt.Sprintf("Permission denied for PID: %d", pid)))
}

// TerminateFailed reports a PID that failed for another reason
func (c *Console) TerminateFailed(pid int32, err error) {
	c.printf("%s\n", c.styles.Error.Render(fmt.Sprintf("Failed to terminate PID %d: %v", pid, err)))
}

// ElevationHint closes a logout that hit permission problems
func (c *Console) ElevationHint() {
	c.printf("\nSome processes could not be terminated due to permission issues.\nTry running with sudo:\n%s\n\n",
		c.styles.Command.Render("    sudo "+c.name+" logout"))
}

// LogoutSummary closes a successful logout
func (c *Console) LogoutSummary(killed int) {
	if killed > 0 {
		plural := ""
		if killed > 1 {
			plural = "s"
		}
		c.printf("\n%s\n", c.styles.Success.Render(fmt.Sprintf("Successfully terminated %d instance%s.", killed, plural)))
	}
	c.printf("\n%s\n\n", c.rule())
}

// TwoFactorFailed reports a rejected 2FA code
func (c *Console) TwoFactorFailed() {
	c.printf("\n\n%s\n", c.styles.Error.Render("2FA verification failed."))
}

// TwoFactorVerified reports an accepted 2FA code
func (c *Console) TwoFactorVerified() {
	c.printf("\n\n%s\n", c.styles.Success.Render("2FA verified successfully."))
}

func (c *Console) abort(headline, detail string) {
	c.printf("\n%s\n%s\n\nAborting...\n\n\n%s\n",
		c.styles.Error.Render(headline),
		detail,
		c.rule(),
	)
}

const supportHint = "If the issue persist, please visit Apple Support (https://support.apple.com/) for further assistance."

// LoginFailed reports response type 0
func (c *Console) LoginFailed() {
	c.abort("Login failed. Please check your credentials and try again.", supportHint)
}

// AccountDisabled reports response type 4
func (c *Console) AccountDisabled() {
	c.abort("Your account has been disabled for security reasons.", supportHint)
}

// LoginRejected reports an explicit "login failed" line
func (c *Console) LoginRejected() {
	c.abort("Login failed. Please try again later.", supportHint)
}

// Ready is printed once the session is authenticated and about to detach
func (c *Console) Ready(pid int) {
	c.printf("\n\n%s\n\nInstance PID: %d\n\n%s\n",
		c.styles.Success.Render("Login Succeed."),
		pid,
		c.rule(),
	)
	c.printf("\nService is ready. Moving to background...\n\n")
	c.printf("To check status:\n%s\n", c.command("status"))
	c.printf("To logout:\n%s\n\n", c.command("logout"))
}

// ExitedEarly reports a managed process that ended before login completed
func (c *Console) ExitedEarly(err error) {
	detail := "The wrapper exited before the login completed."
	if err != nil {
		detail = fmt.Sprintf("The wrapper exited before the login completed (%v).", err)
	}
	c.abort(detail, "Check the log file for the wrapper's output.")
}

// Interrupted is printed when the operator presses Ctrl-C during a launch
func (c *Console) Interrupted() {
	c.printf("\nInterrupted by user\n")
}

// Error prints a fatal startup error
func (c *Console) Error(err error) {
	c.printf("%s\n", c.styles.Error.Render(fmt.Sprintf("Error: %v. Aborting...", err)))
}
