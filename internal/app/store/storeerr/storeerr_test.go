package storeerr

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestFromMongo(t *testing.T) {
	other := errors.New("socket closed")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no documents", mongo.ErrNoDocuments, ErrNotFound},
		{"other", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromMongo(tt.err); !errors.Is(got, tt.want) && got != tt.want {
				t.Errorf("FromMongo(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
