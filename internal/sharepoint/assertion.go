package sharepoint

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// assertionLifetime bounds how long a signed client assertion is accepted
// by the token endpoint. Assertions are single-use; a short window is
// plenty.
const assertionLifetime = 10 * time.Minute

// signAssertion builds the RS256-signed JWT the certificate flow
// exchanges for a bearer token. The x5t header carries the certificate
// thumbprint (hex SHA-1, re-encoded base64url) so the identity endpoint
// can locate the registered certificate.
func signAssertion(key *rsa.PrivateKey, thumbprintHex, clientID, tokenURL string, now time.Time) (string, error) {
	raw, err := hex.DecodeString(thumbprintHex)
	if err != nil {
		return "", fmt.Errorf("%w: certificate thumbprint is not hex: %v", ErrAuthentication, err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"aud": tokenURL,
		"iss": clientID,
		"sub": clientID,
		"jti": uuid.NewString(),
		"nbf": now.Unix(),
		"exp": now.Add(assertionLifetime).Unix(),
	})
	token.Header["x5t"] = base64.RawURLEncoding.EncodeToString(raw)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: signing client assertion: %v", ErrAuthentication, err)
	}

	return signed, nil
}
