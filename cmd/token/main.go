// Package main mints socket tokens and admin key hashes for operators.
//
//	token -user u-42 -name Ada -role broadcaster -ttl 2h
//	token -hash-admin-key 'operator secret'
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aura-webinar/liverelay/config"
	"github.com/aura-webinar/liverelay/internal/auth"
	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/pkg/utils"
)

func main() {
	userID := flag.String("user", "", "user id placed in the token")
	name := flag.String("name", "", "display name")
	role := flag.String("role", "viewer", "most privileged role: broadcaster, viewer or chat")
	ttl := flag.Duration("ttl", 0, "token lifetime; 0 uses JWT_EXPIRE_HOURS")
	adminKey := flag.String("hash-admin-key", "", "print the bcrypt hash for ADMIN_KEY_HASH and exit")
	flag.Parse()

	if *adminKey != "" {
		hash, err := utils.HashSecret(*adminKey)
		if err != nil {
			fail("hash admin key: %v", err)
		}
		fmt.Println(hash)
		return
	}

	if *userID == "" {
		fail("-user is required")
	}
	r, err := models.ParseRole(*role)
	if err != nil {
		fail("%v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fail("load config: %v", err)
	}
	svc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	token, expires, err := svc.Generate(*userID, *name, r, *ttl)
	if err != nil {
		fail("generate token: %v", err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expires.Format(time.RFC3339))
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "token: "+format+"\n", args...)
	os.Exit(1)
}
