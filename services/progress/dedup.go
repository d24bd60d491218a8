package progress

import (
	"log"

	courseModels "lms/models/course"
	"gorm.io/gorm"
)

// DedupStats summarizes one bulk reconciliation pass.
type DedupStats struct {
	GroupsScanned int
	RowsRemoved   int
	RowsSkipped   int
}

// DedupAll reconciles every progress key and removes duplicate rows left
// behind by racing writes, keeping only the canonical row per key. Rows
// referencing a since-deleted content item are logged and skipped; a bad
// record never aborts the batch. Run by the nightly maintenance job.
func (rec *Recorder) DedupAll() (*DedupStats, error) {
	var rows []courseModels.ProgressRecord
	if err := rec.DB.Where("is_deleted = ?", false).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rec.dedupRows(rows)
}

// DedupUserCourse reconciles one (user, course) scope, used after targeted
// cleanups.
func (rec *Recorder) DedupUserCourse(userID, courseID uint) (*DedupStats, error) {
	var rows []courseModels.ProgressRecord
	if err := rec.DB.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rec.dedupRows(rows)
}

type progressKey struct {
	userID uint
	itemID uint
}

func (rec *Recorder) dedupRows(rows []courseModels.ProgressRecord) (*DedupStats, error) {
	grouped := make(map[progressKey][]courseModels.ProgressRecord)
	for _, r := range rows {
		key := progressKey{userID: r.UserID, itemID: r.ContentItemID}
		grouped[key] = append(grouped[key], r)
	}

	stats := &DedupStats{}
	for key, group := range grouped {
		stats.GroupsScanned++

		var item courseModels.ContentItem
		err := rec.DB.Where("id = ? AND is_deleted = ?", key.itemID, false).First(&item).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				log.Printf("[PROGRESS] Skipping %d progress rows for user %d: content item %d no longer exists", len(group), key.userID, key.itemID)
				stats.RowsSkipped += len(group)
				continue
			}
			return stats, err
		}

		if len(group) < 2 {
			continue
		}
		summary := Summarize(group)
		for i := range summary.Duplicates {
			if err := rec.DB.Delete(&summary.Duplicates[i]).Error; err != nil {
				log.Printf("[PROGRESS] Failed to delete duplicate row %d: %v", summary.Duplicates[i].ID, err)
				continue
			}
			stats.RowsRemoved++
		}
	}
	return stats, nil
}
