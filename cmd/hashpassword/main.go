// Command hashpassword prints a bcrypt hash for the USERS_FILE seed. With
// -email it prints a complete YAML user entry instead.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/go-session-server/users"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// readPassword is a test seam for term.ReadPassword
var readPassword = term.ReadPassword

func main() {
	var (
		email = flag.String("email", "", "print a users file entry for this email")
		id    = flag.String("id", "", "user id for the entry")
		name  = flag.String("name", "", "display name for the entry")
		role  = flag.String("role", string(users.RoleUser), "role for the entry (user or admin)")
	)
	flag.Parse()

	password, err := promptPassword(os.Stdin, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	out, err := render(password, *id, *email, *name, users.RoleType(*role))
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Print(out)
}

// promptPassword reads without echo from a terminal, or a single line from a pipe
func promptPassword(in *os.File, w io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(w, "Enter password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	fmt.Fprint(w, "Confirm password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

// render hashes the password and formats either the bare hash or a users file entry
func render(password, id, email, name string, role users.RoleType) (string, error) {
	if err := users.ValidatePasswordStrength(password); err != nil {
		return "", err
	}
	hash, err := users.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	if email == "" {
		return hash + "\n", nil
	}

	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", role)
	}
	if id == "" {
		return "", errors.New("-id is required with -email")
	}
	entry := users.User{
		ID:           id,
		Email:        users.NormalizeEmail(email),
		Name:         name,
		Role:         role,
		PasswordHash: hash,
	}
	data, err := yaml.Marshal(map[string][]users.User{"users": {entry}})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
