package auth

import (
	"strings"
	"testing"
	"time"
)

func TestHashEVerify(t *testing.T) {
	hash, err := Hash("segredo123")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("formato inesperado: %q", hash)
	}

	ok, err := Verify("segredo123", hash)
	if err != nil || !ok {
		t.Fatalf("senha correta rejeitada: ok=%v err=%v", ok, err)
	}
	ok, err = Verify("errada", hash)
	if err != nil || ok {
		t.Fatalf("senha errada aceita: ok=%v err=%v", ok, err)
	}
}

func TestJWTIdaEVolta(t *testing.T) {
	m := NewJWTManager("segredo-de-teste", 15*time.Minute)

	token, jti, err := m.GenerateAccessToken("uid-1", "pastor")
	if err != nil {
		t.Fatal(err)
	}
	if jti == "" {
		t.Fatal("jti vazio")
	}

	claims, err := m.ParseAndValidate(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "uid-1" || claims.Role != "pastor" || claims.ID != jti {
		t.Fatalf("claims erradas: %+v", claims)
	}
}

func TestJWTExpirado(t *testing.T) {
	m := NewJWTManager("segredo-de-teste", -time.Minute)
	token, _, err := m.GenerateAccessToken("uid-1", "pastor")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ParseAndValidate(token); err == nil {
		t.Fatal("token expirado aceito")
	}
}

func TestJWTSegredoErrado(t *testing.T) {
	token, _, err := NewJWTManager("segredo-a", time.Minute).GenerateAccessToken("uid-1", "pastor")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewJWTManager("segredo-b", time.Minute).ParseAndValidate(token); err == nil {
		t.Fatal("assinatura de outro segredo aceita")
	}
}

func TestRefreshToken(t *testing.T) {
	raw, hashed, err := GenerateRefreshToken()
	if err != nil {
		t.Fatal(err)
	}
	if raw == "" || hashed == "" || raw == hashed {
		t.Fatalf("token malformado: raw=%q hash=%q", raw, hashed)
	}
	if HashRefreshToken(raw) != hashed {
		t.Fatal("hash não é determinístico")
	}
	if RefreshRedisKey(hashed) != "refresh:"+hashed {
		t.Fatalf("chave errada: %q", RefreshRedisKey(hashed))
	}
}
