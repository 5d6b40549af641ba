package snapshot

import (
	"context"
	"time"

	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
	"github.com/danglinh9623-svg/MuseFlow/pkg/logger"
	"github.com/danglinh9623-svg/MuseFlow/pkg/metrics"
)

// DecodeStored 解码从存储中读出的快照；内容损坏时记录告警并按不存在处理
func DecodeStored(ctx context.Context, driver string, data []byte) []*entity.Session {
	sessions, err := Decode(data)
	if err != nil {
		logger.Warn(ctx, "discarding malformed session snapshot",
			"driver", driver,
			"bytes", len(data),
			"error", err.Error(),
		)
		return nil
	}
	return sessions
}

// ObserveSave 记录一次快照写入的指标
func ObserveSave(driver string, start time.Time, size int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	} else {
		metrics.StorageSnapshotBytes.Set(float64(size))
	}
	metrics.StorageSaveTotal.WithLabelValues(driver, status).Inc()
	metrics.StorageSaveDuration.WithLabelValues(driver).Observe(time.Since(start).Seconds())
}
