package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/store"
	"github.com/MKhiriev/go-vault-sync/internal/utils"
	"github.com/MKhiriev/go-vault-sync/models"
)

// Collection names served by the document service.
const (
	CollectionTodos          = "todos"
	CollectionTags           = "tags"
	CollectionName           = "name"
	CollectionProfilePicture = "profile-picture"
	CollectionCustomerID     = "customer-id"
)

type collection struct {
	ordered   bool
	archived  bool
	singleton bool
	// username marks the name document, which carries the account username
	// outside the stored body.
	username bool
}

var collections = map[string]collection{
	CollectionTodos:          {ordered: true, archived: true},
	CollectionTags:           {},
	CollectionName:           {singleton: true, username: true},
	CollectionProfilePicture: {singleton: true},
	CollectionCustomerID:     {singleton: true},
}

type documentService struct {
	documents store.DocumentRepository
	users     store.UserRepository
	ids       *utils.UUIDGenerator
	logger    *logger.Logger
}

// NewDocumentService constructs a DocumentService over documents. users is
// read to attach the username to the name document.
func NewDocumentService(documents store.DocumentRepository, users store.UserRepository, log *logger.Logger) DocumentService {
	return &documentService{
		documents: documents,
		users:     users,
		ids:       utils.NewUUIDGenerator(),
		logger:    log.WithComponent("document-service"),
	}
}

func lookupCollection(name string, singleton bool) (collection, error) {
	c, ok := collections[name]
	if !ok || c.singleton != singleton {
		return collection{}, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return c, nil
}

func (s *documentService) List(ctx context.Context, userID, name, filter string) ([]json.RawMessage, error) {
	c, err := lookupCollection(name, false)
	if err != nil {
		return nil, err
	}

	docs, err := s.documents.List(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	out := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		if c.archived && !matchesFilter(doc, models.ListFilter(filter)) {
			continue
		}
		raw, err := renderDocument(doc, true)
		if err != nil {
			logger.FromContext(ctx).Err(err).Str("func", "*documentService.List").Str("id", doc.ID).Msg("stored document is corrupt")
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func matchesFilter(doc models.StoredDocument, filter models.ListFilter) bool {
	switch filter {
	case models.ListFilterArchived:
		return doc.Archived
	case models.ListFilterUnarchived:
		return !doc.Archived
	default:
		return true
	}
}

func (s *documentService) Create(ctx context.Context, userID, name string, body json.RawMessage) (models.StateResponse, error) {
	c, err := lookupCollection(name, false)
	if err != nil {
		return models.StateResponse{}, err
	}

	doc, err := s.build(userID, name, s.ids.Generate(), c, body)
	if err != nil {
		return models.StateResponse{}, err
	}
	if c.ordered {
		doc.Index = models.IntPtr(0)
	}

	doc, err = s.documents.Create(ctx, doc)
	if err != nil {
		return models.StateResponse{}, err
	}
	return stateOf(doc, true), nil
}

// Patch applies body as a JSON merge patch. A meta.index member moves the
// document and is never stored.
func (s *documentService) Patch(ctx context.Context, userID, name, id string, body json.RawMessage) (models.StateResponse, error) {
	c, err := lookupCollection(name, false)
	if err != nil {
		return models.StateResponse{}, err
	}

	patch, err := decodeObject(body)
	if err != nil {
		return models.StateResponse{}, err
	}
	delete(patch, "id")

	index, hasIndex, err := takeIndex(patch)
	if err != nil {
		return models.StateResponse{}, err
	}
	if hasIndex {
		if !c.ordered {
			return models.StateResponse{}, fmt.Errorf("%w: %s is not ordered", ErrInvalidDocument, name)
		}
		if err = s.documents.Move(ctx, userID, name, id, index); err != nil {
			return models.StateResponse{}, err
		}
	}

	doc, err := s.documents.Get(ctx, userID, name, id)
	if err != nil {
		return models.StateResponse{}, err
	}

	if len(patch) > 0 {
		merged, err := mergeObject(json.RawMessage(doc.Body), patch)
		if err != nil {
			return models.StateResponse{}, err
		}
		if err = seal(&doc, c, merged); err != nil {
			return models.StateResponse{}, err
		}
		if doc, err = s.documents.Update(ctx, doc); err != nil {
			return models.StateResponse{}, err
		}
	}

	return stateOf(doc, true), nil
}

func (s *documentService) Delete(ctx context.Context, userID, name, id string) error {
	if _, err := lookupCollection(name, false); err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, userID, name, id); err != nil {
		return err
	}
	if name == CollectionTags {
		return s.untag(ctx, userID, id)
	}
	return nil
}

// untag drops tag id from the items of every todo list.
func (s *documentService) untag(ctx context.Context, userID, tagID string) error {
	lists, err := s.documents.List(ctx, userID, CollectionTodos)
	if err != nil {
		return err
	}

	c := collections[CollectionTodos]
	for _, doc := range lists {
		var list models.EncryptedList
		if err = json.Unmarshal([]byte(doc.Body), &list); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		changed := false
		for i, item := range list.Items {
			if slices.Contains(item.Tags, tagID) {
				list.Items[i].Tags = slices.DeleteFunc(item.Tags, func(t string) bool { return t == tagID })
				changed = true
			}
		}
		if !changed {
			continue
		}

		body, err := decodeObject(json.RawMessage(doc.Body))
		if err != nil {
			return err
		}
		body["items"] = list.Items
		if err = seal(&doc, c, body); err != nil {
			return err
		}
		if _, err = s.documents.Update(ctx, doc); err != nil {
			return err
		}
		logger.FromContext(ctx).Debug().Str("list_id", doc.ID).Str("tag_id", tagID).Msg("tag removed from list")
	}
	return nil
}

func (s *documentService) Fetch(ctx context.Context, userID, name string) (json.RawMessage, bool, error) {
	c, err := lookupCollection(name, true)
	if err != nil {
		return nil, false, err
	}

	doc, err := s.documents.Get(ctx, userID, name, userID)
	if errors.Is(err, store.ErrDocumentNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if !c.username {
		raw, err := renderDocument(doc, false)
		return raw, err == nil, err
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	obj, err := renderObject(doc, false)
	if err != nil {
		return nil, false, err
	}
	if user.Username != nil {
		obj["username"] = *user.Username
	}
	raw, err := json.Marshal(obj)
	return raw, err == nil, err
}

// Save creates or replaces the singleton of name.
func (s *documentService) Save(ctx context.Context, userID, name string, body json.RawMessage) (models.StateResponse, error) {
	c, err := lookupCollection(name, true)
	if err != nil {
		return models.StateResponse{}, err
	}

	doc, err := s.build(userID, name, userID, c, body)
	if err != nil {
		return models.StateResponse{}, err
	}

	_, err = s.documents.Get(ctx, userID, name, userID)
	switch {
	case errors.Is(err, store.ErrDocumentNotFound):
		doc, err = s.documents.Create(ctx, doc)
	case err == nil:
		doc, err = s.documents.Update(ctx, doc)
	}
	if err != nil {
		return models.StateResponse{}, err
	}
	return stateOf(doc, false), nil
}

func (s *documentService) Remove(ctx context.Context, userID, name string) error {
	if _, err := lookupCollection(name, true); err != nil {
		return err
	}
	err := s.documents.Delete(ctx, userID, name, userID)
	if errors.Is(err, store.ErrDocumentNotFound) {
		return nil
	}
	return err
}

// build turns a client body into a stored document. Server managed fields
// are dropped.
func (s *documentService) build(userID, name, id string, c collection, body json.RawMessage) (models.StoredDocument, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return models.StoredDocument{}, err
	}
	delete(obj, "id")
	if _, _, err = takeIndex(obj); err != nil {
		return models.StoredDocument{}, err
	}

	doc := models.StoredDocument{UserID: userID, Collection: name, ID: id}
	if err = seal(&doc, c, obj); err != nil {
		return models.StoredDocument{}, err
	}
	return doc, nil
}

// seal stores obj as the body of doc and recomputes its checksum. The
// checksum covers the canonical encoding, so equal content always yields
// equal checksums.
func seal(doc *models.StoredDocument, c collection, obj map[string]any) error {
	if c.username {
		delete(obj, "username")
	}
	if meta, ok := obj["meta"].(map[string]any); ok {
		delete(meta, "checksum")
		delete(meta, "index")
		if c.archived {
			archived, _ := meta["archived"].(bool)
			doc.Archived = archived
		}
	}

	body, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	doc.Body = string(body)
	doc.Checksum = utils.Checksum(body)
	return nil
}

// takeIndex removes meta.index from obj and returns it.
func takeIndex(obj map[string]any) (int, bool, error) {
	meta, ok := obj["meta"].(map[string]any)
	if !ok {
		return 0, false, nil
	}
	raw, ok := meta["index"]
	if !ok {
		return 0, false, nil
	}
	delete(meta, "index")
	if len(meta) == 0 {
		delete(obj, "meta")
	}

	n, ok := raw.(json.Number)
	if !ok {
		return 0, false, fmt.Errorf("%w: index must be a number", ErrInvalidDocument)
	}
	index, err := n.Int64()
	if err != nil {
		return 0, false, fmt.Errorf("%w: index must be an integer", ErrInvalidDocument)
	}
	return int(index), true, nil
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: body must be an object", ErrInvalidDocument)
	}
	return obj, nil
}

// mergeObject applies patch to the stored body as an RFC 7386 merge patch.
func mergeObject(body json.RawMessage, patch map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	merged, err := jsonpatch.MergePatch(body, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return decodeObject(merged)
}

func renderObject(doc models.StoredDocument, withID bool) (map[string]any, error) {
	obj, err := decodeObject(json.RawMessage(doc.Body))
	if err != nil {
		return nil, err
	}
	if withID {
		obj["id"] = doc.ID
	}
	meta, ok := obj["meta"].(map[string]any)
	if !ok {
		meta = map[string]any{}
		obj["meta"] = meta
	}
	meta["checksum"] = doc.Checksum
	if doc.Index != nil {
		meta["index"] = *doc.Index
	}
	return obj, nil
}

func renderDocument(doc models.StoredDocument, withID bool) (json.RawMessage, error) {
	obj, err := renderObject(doc, withID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

func stateOf(doc models.StoredDocument, withID bool) models.StateResponse {
	res := models.StateResponse{Meta: models.Meta{Checksum: doc.Checksum, Index: doc.Index}}
	if withID {
		res.ID = doc.ID
	}
	return res
}
