package server

import "math"

// Vec2 二维点 / 向量，序列化为 {"x":..,"y":..}
type Vec2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(k float64) Vec2 { return Vec2{X: v.X * k, Y: v.Y * k} }
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64 { return o.Sub(v).Len() }
func (v Vec2) Finite() bool { return isFinite(v.X) && isFinite(v.Y) }
func (v Vec2) Neg() Vec2 { return Vec2{X: -v.X, Y: -v.Y} }
func (v Vec2) Equal(o Vec2) bool { return v.X == o.X && v.Y == o.Y }

// CalcAngle 返回从 p1 指向 p2 的朝向（角度制）
func CalcAngle(p1, p2 Vec2) float64 {
	return ToDegrees(math.Atan2(p2.Y-p1.Y, p2.X-p1.X))
}

// MoveTowardsPoint 由弧度角与长度得到方向向量
func MoveTowardsPoint(angle, magnitude float64) Vec2 {
	return Vec2{X: math.Cos(angle) * magnitude, Y: math.Sin(angle) * magnitude}
}

func ToDegrees(rads float64) float64 { return rads * (180 / math.Pi) }

func ToRadians(degrees float64) float64 { return degrees * (math.Pi / 180) }

// Intersects 圆与圆相交判定：圆心欧氏距离 <= 半径之和（相切也算相交）
func Intersects(a Vec2, ra float64, b Vec2, rb float64) bool {
	return a.Dist(b) <= ra+rb
}

// Clamp 将 v 裁剪到 [lo, hi]；lo > hi 时取区间中点
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampToRect 将点裁剪到 [margin, w-margin] × [margin, h-margin]
func ClampToRect(p Vec2, w, h, margin float64) Vec2 {
	return Vec2{X: Clamp(p.X, margin, w-margin), Y: Clamp(p.Y, margin, h-margin)}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
