package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/application"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/config"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

type operatorStore interface {
	CreateOperator(ctx context.Context, operator persistence.Operator) error
}

func operatorCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "operator",
		Usage: "Manage operators allowed to call the API",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register an operator and print its API key once",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "role", Value: "custodian"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					logger, err := newLogger(c)
					if err != nil {
						return err
					}
					cfg, err := config.LoadDatabase()
					if err != nil {
						return err
					}
					policy, err := config.LoadPolicy(cfg)
					if err != nil {
						return err
					}
					store, err := openStore(ctx, cfg, logger)
					if err != nil {
						return err
					}
					defer store.Close()

					key, err := addOperator(ctx, store, policy, c.String("id"), c.String("name"), c.String("role"), time.Now().UTC())
					if err != nil {
						return err
					}
					logger.InfoContext(ctx, "operator registered", "operator_id", c.String("id"), "role", c.String("role"))
					_, err = fmt.Fprintf(stdout, "operator %s created\napi key: %s\n", strings.TrimSpace(c.String("id")), key)
					return err
				},
			},
		},
	}
}

// addOperator stores a new operator and returns the plaintext key, which is
// never persisted.
func addOperator(ctx context.Context, store operatorStore, policy application.Policy, id, name, role string, now time.Time) (string, error) {
	id, name, role = strings.TrimSpace(id), strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(role))
	if id == "" || name == "" {
		return "", errors.New("operator: id and name are required")
	}
	if !policy.HasRole(role) {
		return "", fmt.Errorf("operator: unknown role %q (known: %s)", role, strings.Join(policy.Roles(), ", "))
	}

	key, err := application.GenerateAPIKey()
	if err != nil {
		return "", err
	}
	hash, err := application.HashAPIKey(key, application.DefaultArgon2idParams)
	if err != nil {
		return "", err
	}
	err = store.CreateOperator(ctx, persistence.Operator{
		ID:         id,
		Name:       name,
		Role:       role,
		APIKeyHash: hash,
		CreatedAt:  now,
	})
	if errors.Is(err, persistence.ErrDuplicate) {
		return "", fmt.Errorf("operator: %s already exists", id)
	}
	if err != nil {
		return "", err
	}
	return key, nil
}
