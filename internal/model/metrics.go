// Package model はドメインモデルを定義する。
package model

import "time"

// DailySummary は1日分の活動サマリーを表す。日付が自然キー。
// 必須フィールドはDateのみで、他はベンダーデータが欠落している場合nilになる。
type DailySummary struct {
	Date                time.Time
	TotalSteps          *int
	TotalDistanceMeters *int
	ActiveKcal          *float64
	BmrKcal             *float64
	TotalKcal           *float64
	RestingHR           *int
	MinHR               *int
	MaxHR               *int
	AvgStress           *int
	MaxStress           *int
	BodyBatteryCurrent  *int
	BodyBatteryHigh     *int
	BodyBatteryLow      *int
	LastUpdated         time.Time
}

// SleepSummary は1晩分の睡眠サマリーを表す。日付が自然キー。
type SleepSummary struct {
	Date              time.Time
	TotalSleepSeconds *int
	DeepSleepSeconds  *int
	LightSleepSeconds *int
	RemSleepSeconds   *int
	AwakeSleepSeconds *int
	SleepScore        *int
	SleepQuality      *string
	LastUpdated       time.Time
}

// HrvSummary は1晩分のHRV（心拍変動）サマリーを表す。日付が自然キー。
type HrvSummary struct {
	Date         time.Time
	LastNightAvg *int
	WeeklyAvg    *int
	Status       *string
	LastUpdated  time.Time
}
