package domain

// FlowObject 表示场景中的一个实体。
// 同一结构既是房间内存表的条目，也是 GORM 行和 wire JSON 结构。
// 几何负载 (Triangles/Vertices/UV) 通过 GORM 的 json serializer 落库。
type FlowObject struct {
	ID        string `gorm:"primaryKey;size:191" json:"Id"`
	ProjectID string `gorm:"index;size:191" json:"-"` // 所属项目 (房间) ID
	Type      string `gorm:"size:50" json:"Type"`
	Name      string `gorm:"size:191" json:"Name"`

	// 变换：位置、旋转四元数、缩放
	X  float64 `json:"X"`
	Y  float64 `json:"Y"`
	Z  float64 `json:"Z"`
	QX float64 `json:"Q_x"`
	QY float64 `json:"Q_y"`
	QZ float64 `json:"Q_z"`
	QW float64 `json:"Q_w"`
	SX float64 `json:"S_x"`
	SY float64 `json:"S_y"`
	SZ float64 `json:"S_z"`

	// 几何负载
	Triangles []int       `gorm:"serializer:json" json:"Triangles"`
	Vertices  [][]float64 `gorm:"serializer:json" json:"Vertices"`
	UV        [][]float64 `gorm:"serializer:json" json:"UV"`

	// 锁状态。Locked 随对象落库；LockHolder 是持锁客户端的连接 ID，
	// 只在房间内存表里有意义，不持久化也不下发。
	Locked     bool   `json:"Locked"`
	LockHolder string `gorm:"-" json:"-"`
}

// ApplyUpdate 把另一份对象数据的变换和几何字段覆盖到当前对象上。
// 锁状态字段不参与覆盖，锁的迁移只能走 checkout/checkin。
func (o *FlowObject) ApplyUpdate(in *FlowObject) {
	o.Type = in.Type
	o.Name = in.Name
	o.X, o.Y, o.Z = in.X, in.Y, in.Z
	o.QX, o.QY, o.QZ, o.QW = in.QX, in.QY, in.QZ, in.QW
	o.SX, o.SY, o.SZ = in.SX, in.SY, in.SZ
	o.Triangles = in.Triangles
	o.Vertices = in.Vertices
	o.UV = in.UV
}
