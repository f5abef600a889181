package collection

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

func collectionToHash(col domain.Collection) map[string]string {
	createdAt := col.CreatedAt()
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}
	return map[string]string{
		"tenant_id":  col.TenantID(),
		"kind":       string(col.Kind()),
		"vector_dim": strconv.Itoa(col.Dimension()),
		"created_at": strconv.FormatInt(createdAt, 10),
	}
}

func collectionFromHash(m map[string]string) (domain.Collection, error) {
	dim, err := strconv.Atoi(m["vector_dim"])
	if err != nil {
		return domain.Collection{}, fmt.Errorf("parse vector_dim %q: %w", m["vector_dim"], err)
	}

	createdAt, _ := strconv.ParseInt(m["created_at"], 10, 64)

	return domain.ReconstructCollection(
		m["tenant_id"], domain.Kind(m["kind"]), dim, createdAt,
	), nil
}
