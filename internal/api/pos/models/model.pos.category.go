package models

// PosCategory dòng trong bảng danh mục sản phẩm (pos_product_groups) của một location.
// Dữ liệu do người dùng quản lý: có thể thiếu parent, trùng tên, hoặc tạo vòng.
// Field giữ nguyên dạng thô để chuẩn hóa bằng accessor table (groupId/GroupId/id...).
type PosCategory map[string]interface{}
