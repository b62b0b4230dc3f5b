package users

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Users []*User `yaml:"users"`
}

// LoadSeedFile reads users from a YAML file of the form
//
//	users:
//	  - id: "42"
//	    email: john.doe@example.com
//	    name: John Doe
//	    role: user
//	    password_hash: $2a$10$...
func LoadSeedFile(path string) ([]*User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]*User, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}

	seen := make(map[string]bool, len(seed.Users))
	for i, u := range seed.Users {
		if u == nil || u.Email == "" || u.PasswordHash == "" {
			return nil, fmt.Errorf("user %d: email and password_hash are required", i)
		}
		u.Email = NormalizeEmail(u.Email)
		if seen[u.Email] {
			return nil, fmt.Errorf("user %d: duplicate email %s", i, u.Email)
		}
		seen[u.Email] = true

		if u.Role == "" {
			u.Role = RoleUser
		}
		if !u.Role.Valid() {
			return nil, fmt.Errorf("user %d: unknown role %q", i, u.Role)
		}
	}
	return seed.Users, nil
}

// Seed upserts every user into the repo
func Seed(repo UserRepo, seeded []*User) error {
	for _, u := range seeded {
		if err := repo.Upsert(u); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
	}
	return nil
}
