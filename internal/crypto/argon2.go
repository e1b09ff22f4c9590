package crypto

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-vault-sync/models"
	"golang.org/x/crypto/argon2"
)

// Argon2Code is the status reported by the Argon2 worker. Negative values
// follow the reference implementation's error numbering.
type Argon2Code int

const (
	Argon2OK               Argon2Code = 0
	Argon2OutputTooShort   Argon2Code = -2
	Argon2PasswordTooShort Argon2Code = -4
	Argon2SaltTooShort     Argon2Code = -6
	Argon2TimeTooSmall     Argon2Code = -12
	Argon2MemoryTooLittle  Argon2Code = -14
	Argon2LanesTooFew      Argon2Code = -16
	Argon2IncorrectType    Argon2Code = -26
	Argon2UnknownMethod    Argon2Code = -100
	Argon2Panic            Argon2Code = -101
)

const (
	minArgon2SaltLen = 8
	minArgon2HashLen = 4
)

// Argon2Method selects the operation of an [Argon2Request].
type Argon2Method int

const (
	Argon2MethodHash Argon2Method = iota + 1
)

// Argon2Request is a message to the Argon2 worker.
type Argon2Request struct {
	Method     Argon2Method
	Password   []byte
	Salt       []byte
	Type       models.HashAlgorithm
	TimeCost   uint32
	MemoryCost uint32
	Threads    uint8
	HashLen    uint32
}

// Argon2Response is the reply of the Argon2 worker.
type Argon2Response struct {
	Code Argon2Code
	Body []byte
}

// Argon2Worker owns one Argon2 worker connection.
type Argon2Worker struct {
	conn        *WorkerConnection[Argon2Request, Argon2Response]
	development bool
}

// NewArgon2Worker starts an Argon2 worker. In development mode hashing errors
// carry the worker status code.
func NewArgon2Worker(development bool) *Argon2Worker {
	return &Argon2Worker{
		conn:        NewWorkerConnection(handleArgon2),
		development: development,
	}
}

// Hash stretches password with salt and params on the worker goroutine.
// params.Salt is ignored; the raw salt is passed explicitly.
func (w *Argon2Worker) Hash(ctx context.Context, password string, salt []byte, params models.HashParams, hashLen uint32) ([]byte, error) {
	res, err := w.conn.PostMessage(ctx, Argon2Request{
		Method:     Argon2MethodHash,
		Password:   []byte(password),
		Salt:       salt,
		Type:       params.Type,
		TimeCost:   params.TimeCost,
		MemoryCost: params.MemoryCost,
		Threads:    params.Threads,
		HashLen:    hashLen,
	})
	if err != nil {
		return nil, err
	}
	if res.Code != Argon2OK {
		return nil, statusError(ErrHashingFailed, int(res.Code), w.development)
	}
	return res.Body, nil
}

// Close stops the worker goroutine.
func (w *Argon2Worker) Close() {
	w.conn.Close()
}

func handleArgon2(req Argon2Request) (res Argon2Response) {
	defer func() {
		if r := recover(); r != nil {
			res = Argon2Response{Code: Argon2Panic, Body: []byte(fmt.Sprint(r))}
		}
	}()

	if req.Method != Argon2MethodHash {
		return Argon2Response{Code: Argon2UnknownMethod}
	}
	if code := validateArgon2(req); code != Argon2OK {
		return Argon2Response{Code: code}
	}

	var out []byte
	switch req.Type {
	case models.Argon2i:
		out = argon2.Key(req.Password, req.Salt, req.TimeCost, req.MemoryCost, req.Threads, req.HashLen)
	case models.Argon2id:
		out = argon2.IDKey(req.Password, req.Salt, req.TimeCost, req.MemoryCost, req.Threads, req.HashLen)
	}
	return Argon2Response{Code: Argon2OK, Body: out}
}

func validateArgon2(req Argon2Request) Argon2Code {
	switch {
	case req.Type != models.Argon2i && req.Type != models.Argon2id:
		return Argon2IncorrectType
	case req.HashLen < minArgon2HashLen:
		return Argon2OutputTooShort
	case len(req.Password) == 0:
		return Argon2PasswordTooShort
	case len(req.Salt) < minArgon2SaltLen:
		return Argon2SaltTooShort
	case req.TimeCost < 1:
		return Argon2TimeTooSmall
	case req.Threads < 1:
		return Argon2LanesTooFew
	case req.MemoryCost < 8*uint32(req.Threads):
		return Argon2MemoryTooLittle
	}
	return Argon2OK
}
