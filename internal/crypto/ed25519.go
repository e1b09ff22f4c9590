package crypto

import (
	"context"
	"crypto/ed25519"
	"fmt"
)

// ED25519Code is the status reported by the Ed25519 worker.
type ED25519Code int

const (
	ED25519Success ED25519Code = iota
	ED25519InvalidSeed
	ED25519InvalidPrivateKey
	ED25519InvalidPublicKey
	ED25519UnknownMethod
	ED25519Panic
)

// ED25519Method selects the operation of an [ED25519Request].
type ED25519Method int

const (
	ED25519GenerateKeypair ED25519Method = iota + 1
	ED25519SignMessage
	ED25519VerifyMessage
)

// ED25519Request is a message to the Ed25519 worker. Only the fields used by
// Method are read.
type ED25519Request struct {
	Method        ED25519Method
	Seed          []byte
	OmitPublicKey bool
	Message       []byte
	PrivateKey    []byte
	PublicKey     []byte
	Signature     []byte
}

// ED25519Response is the reply of the Ed25519 worker.
type ED25519Response struct {
	Code       ED25519Code
	PublicKey  []byte
	PrivateKey []byte
	Signature  []byte
	Valid      bool
}

// SigningKeypair is a derived Ed25519 keypair. PublicKey is nil when it was
// omitted at derivation.
type SigningKeypair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// ED25519Worker owns one Ed25519 worker connection.
type ED25519Worker struct {
	conn        *WorkerConnection[ED25519Request, ED25519Response]
	development bool
}

// NewED25519Worker starts an Ed25519 worker.
func NewED25519Worker(development bool) *ED25519Worker {
	return &ED25519Worker{
		conn:        NewWorkerConnection(handleED25519),
		development: development,
	}
}

// GenerateKeypair derives a keypair from a 32-byte seed. The same seed always
// yields the same keypair.
func (w *ED25519Worker) GenerateKeypair(ctx context.Context, seed []byte, omitPublicKey bool) (SigningKeypair, error) {
	res, err := w.post(ctx, ED25519Request{Method: ED25519GenerateKeypair, Seed: seed, OmitPublicKey: omitPublicKey})
	if err != nil {
		return SigningKeypair{}, err
	}
	return SigningKeypair{PublicKey: res.PublicKey, PrivateKey: res.PrivateKey}, nil
}

// Sign signs message with privateKey.
func (w *ED25519Worker) Sign(ctx context.Context, message, privateKey []byte) ([]byte, error) {
	res, err := w.post(ctx, ED25519Request{Method: ED25519SignMessage, Message: message, PrivateKey: privateKey})
	if err != nil {
		return nil, err
	}
	return res.Signature, nil
}

// Verify reports whether signature is a valid signature of message by
// publicKey.
func (w *ED25519Worker) Verify(ctx context.Context, publicKey, message, signature []byte) (bool, error) {
	res, err := w.post(ctx, ED25519Request{
		Method:    ED25519VerifyMessage,
		PublicKey: publicKey,
		Message:   message,
		Signature: signature,
	})
	if err != nil {
		return false, err
	}
	return res.Valid, nil
}

// Close stops the worker goroutine.
func (w *ED25519Worker) Close() {
	w.conn.Close()
}

func (w *ED25519Worker) post(ctx context.Context, req ED25519Request) (ED25519Response, error) {
	res, err := w.conn.PostMessage(ctx, req)
	if err != nil {
		return ED25519Response{}, err
	}
	if res.Code != ED25519Success {
		return ED25519Response{}, statusError(ErrSigningFailed, int(res.Code), w.development)
	}
	return res, nil
}

func handleED25519(req ED25519Request) (res ED25519Response) {
	defer func() {
		if r := recover(); r != nil {
			res = ED25519Response{Code: ED25519Panic, Signature: []byte(fmt.Sprint(r))}
		}
	}()

	switch req.Method {
	case ED25519GenerateKeypair:
		if len(req.Seed) != ed25519.SeedSize {
			return ED25519Response{Code: ED25519InvalidSeed}
		}
		priv := ed25519.NewKeyFromSeed(req.Seed)
		res := ED25519Response{Code: ED25519Success, PrivateKey: priv}
		if !req.OmitPublicKey {
			res.PublicKey = priv.Public().(ed25519.PublicKey)
		}
		return res

	case ED25519SignMessage:
		if len(req.PrivateKey) != ed25519.PrivateKeySize {
			return ED25519Response{Code: ED25519InvalidPrivateKey}
		}
		return ED25519Response{Code: ED25519Success, Signature: ed25519.Sign(req.PrivateKey, req.Message)}

	case ED25519VerifyMessage:
		if len(req.PublicKey) != ed25519.PublicKeySize {
			return ED25519Response{Code: ED25519InvalidPublicKey}
		}
		return ED25519Response{
			Code:  ED25519Success,
			Valid: ed25519.Verify(req.PublicKey, req.Message, req.Signature),
		}
	}

	return ED25519Response{Code: ED25519UnknownMethod}
}
