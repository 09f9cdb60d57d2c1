// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"net/http"

	"github.com/z5labs/restkit/rest"

	"github.com/golang-jwt/jwt/v5"
)

// User is the caller identified by the bearer token.
type User struct {
	ID string
}

// JWT verifies HS256 signed tokens issued by issuer. The token subject
// identifies the [User].
func JWT(secret []byte, issuer string) rest.AuthFunc[User] {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)

	return func(r *http.Request, bearer *rest.Bearer) (User, error) {
		if bearer == nil {
			return User{}, rest.Unauthorized.Err()
		}

		var claims jwt.RegisteredClaims
		_, err := parser.ParseWithClaims(bearer.Token, &claims, func(*jwt.Token) (any, error) {
			return secret, nil
		})
		if err != nil {
			return User{}, rest.Unauthorized.Wrap(err)
		}
		if claims.Subject == "" {
			return User{}, rest.Unauthorized.Err()
		}

		return User{ID: claims.Subject}, nil
	}
}
