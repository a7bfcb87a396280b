package planning

import (
	"gorm.io/gorm"
)

// nextPosition returns the first free insertion sequence number of a course of study.
func nextPosition(tx *gorm.DB, model interface{}, courseOfStudy string) (int64, error) {
	var max int64
	err := tx.Model(model).
		Where("course_of_study = ?", courseOfStudy).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
