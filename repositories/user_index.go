package repositories

import (
	"context"
	"fmt"

	"github.com/blugelabs/bluge"
)

// UserIndex is a full-text index over account names and emails, backing the
// user search endpoint. The index only stores user IDs; matched users are
// resolved through the user repository.
type UserIndex struct {
	writer *bluge.Writer
}

func NewUserIndex(path string) (*UserIndex, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("opening user index: %w", err)
	}
	return &UserIndex{writer: writer}, nil
}

func (i *UserIndex) Index(user User) error {
	doc := bluge.NewDocument(user.ID).
		AddField(bluge.NewTextField("name", user.Name)).
		AddField(bluge.NewTextField("email", user.Email))
	return i.writer.Update(doc.ID(), doc)
}

// Search returns the IDs of users whose name or email matches the keyword.
func (i *UserIndex) Search(ctx context.Context, keyword string, limit int) ([]string, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	query := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(keyword).SetField("name")).
		AddShould(bluge.NewMatchQuery(keyword).SetField("email"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var ids []string
	match, err := iterator.Next()
	for err == nil && match != nil {
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids = append(ids, string(value))
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (i *UserIndex) Close() error {
	return i.writer.Close()
}
